package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// ErrGameOver is returned by Process once the game has finished.
var ErrGameOver = errors.New("game over")

// PlayerScore is one line of the final standings.
type PlayerScore struct {
	Player string `json:"player"`
	Worth  int    `json:"worth"`
}

// Game is one game session: players, companies, bank, market, the move
// ledger and the active round. It is an explicit context object, not a
// singleton; any number of games can run in one process. All state mutation
// flows through the move ledger, so every accepted action is undoable and
// the accepted-action log replays deterministically.
type Game struct {
	Options   Options
	Players   []*Player
	Companies []*PublicCompany
	Privates  []*PrivateCompany
	Bank      *Bank
	Market    *StockMarket
	Moves     *MoveStack
	Log       zerolog.Logger

	round        Round
	priority     int
	srCount      int
	phase        int
	actions      []Action
	undoable     int
	gameOver     bool
	endTriggered bool
	result       []PlayerScore
}

// NewGame sets up a session from a rule set and player names. Setup funding
// runs through the ledger like everything else, then the undo horizon is
// advanced so setup cannot be undone.
func NewGame(opts Options, playerNames []string, log zerolog.Logger) (*Game, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	startCash, ok := opts.StartingCash[len(playerNames)]
	if !ok {
		return nil, fmt.Errorf("%w: variant %s does not support %d players", ErrConfiguration, opts.Variant, len(playerNames))
	}

	g := &Game{
		Options: opts,
		Bank:    NewBank(),
		Market:  NewStockMarket(opts.Market),
		Moves:   NewMoveStack(log),
		Log:     log,
	}

	g.Moves.StartSet("game setup")
	if err := g.Moves.Record(&cashMove{from: nil, to: g.Bank.Account, amount: opts.BankCash}); err != nil {
		return nil, err
	}

	for i, name := range playerNames {
		if name == "" {
			return nil, fmt.Errorf("%w: empty player name at seat %d", ErrConfiguration, i)
		}
		p := &Player{
			Index:     i,
			Name:      name,
			Account:   NewAccount(name, false),
			Portfolio: NewPortfolio(name),
		}
		if err := TransferCash(g.Moves, g.Bank.Account, p.Account, startCash); err != nil {
			return nil, err
		}
		g.Players = append(g.Players, p)
	}

	for _, spec := range opts.Companies {
		c := &PublicCompany{
			Symbol:      spec.Symbol,
			Name:        spec.Name,
			TotalShares: spec.TotalShares,
			Treasury:    NewAccount(spec.Symbol, false),
			Portfolio:   NewPortfolio(spec.Symbol),
		}
		// one president certificate worth two shares, the rest ordinary
		g.Bank.IPO.certs = append(g.Bank.IPO.certs, &Certificate{
			Company: c, Shares: 2, President: true, owner: g.Bank.IPO,
		})
		for i := 0; i < spec.TotalShares-2; i++ {
			g.Bank.IPO.certs = append(g.Bank.IPO.certs, &Certificate{
				Company: c, Shares: 1, owner: g.Bank.IPO,
			})
		}
		g.Companies = append(g.Companies, c)
	}

	for _, spec := range opts.Privates {
		pc := &PrivateCompany{Name: spec.Name, Price: spec.Price, Revenue: spec.Revenue}
		g.Bank.IPO.privates = append(g.Bank.IPO.privates, pc)
		g.Privates = append(g.Privates, pc)
	}

	for _, spec := range opts.Trains {
		for i := 0; i < spec.Count; i++ {
			g.Bank.IPO.trains = append(g.Bank.IPO.trains, &Train{
				Name: spec.Name, Price: spec.Price, Revenue: spec.Revenue,
			})
		}
	}

	g.Moves.CloseSet()
	g.Moves.Clear()

	g.round = NewStartRound(g)
	g.Log.Info().Str("variant", opts.Variant).Int("players", len(playerNames)).Msg("game created")
	return g, nil
}

// Round returns the active round.
func (g *Game) Round() Round { return g.round }

// CurrentPlayer returns the player whose turn it is.
func (g *Game) CurrentPlayer() *Player { return g.round.CurrentPlayer(g) }

// PossibleActions returns the legal-action set of the active round.
func (g *Game) PossibleActions() []Action {
	if g.gameOver {
		return nil
	}
	return g.round.PossibleActions(g)
}

// Actions returns a copy of the accepted-action log.
func (g *Game) Actions() []Action {
	out := make([]Action, len(g.actions))
	copy(out, g.actions)
	return out
}

// GameOver reports whether final scoring has happened.
func (g *Game) GameOver() bool { return g.gameOver }

// Result returns the final standings, best first. Empty until game over.
func (g *Game) Result() []PlayerScore {
	out := make([]PlayerScore, len(g.result))
	copy(out, g.result)
	return out
}

// Phase returns the name of the current train phase.
func (g *Game) Phase() string {
	if len(g.Options.Trains) == 0 {
		return ""
	}
	return g.Options.Trains[g.phase].Name
}

// Priority returns the player holding the next-round priority.
func (g *Game) Priority() *Player { return g.Players[g.priority] }

// PlayerByName resolves a player by display name, nil when absent.
func (g *Game) PlayerByName(name string) *Player {
	for _, p := range g.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// CompanyBySymbol resolves a public company, nil when absent.
func (g *Game) CompanyBySymbol(symbol string) *PublicCompany {
	for _, c := range g.Companies {
		if c.Symbol == symbol {
			return c
		}
	}
	return nil
}

// SharesInPlay sums a company's shares across the IPO, the pool, all player
// portfolios and the company treasury. The conservation invariant demands
// this always equals the company's total share count.
func (g *Game) SharesInPlay(c *PublicCompany) int {
	total := g.Bank.IPO.SharesOf(c) + g.Bank.Pool.SharesOf(c) + c.Portfolio.SharesOf(c)
	for _, p := range g.Players {
		total += p.Portfolio.SharesOf(c)
	}
	return total
}

// Process validates and applies one player action. An action outside the
// legal set, or failing a precondition mid-application, leaves the game
// byte-for-byte unchanged and returns an error wrapping ErrInvalidAction.
// Accepted actions are appended to the action log.
func (g *Game) Process(a Action) error {
	if g.gameOver {
		return ErrGameOver
	}
	legal := g.round.PossibleActions(g)
	if !containsAction(legal, a) {
		return invalidf("%s is not a legal action right now", a.String())
	}

	g.Moves.StartSet(a.String())
	done, err := g.round.Process(g, a)
	if err != nil {
		if rbErr := g.Moves.RollbackOpen(); rbErr != nil {
			return fmt.Errorf("%w: after failed action %s: %v", ErrCorrupt, a.String(), rbErr)
		}
		g.round.invalidate()
		return err
	}
	g.Moves.CloseSet()
	g.undoable++
	g.actions = append(g.actions, a)

	if g.Bank.JustBroken() {
		g.endTriggered = true
		g.Log.Warn().Msg("the bank is broken, the game ends after this round")
	}

	if or, ok := g.round.(*OperatingRound); ok && or.needSelling {
		or.needSelling = false
		g.clearHorizon()
		g.round = NewShareSellingRound(g, or, or.Company())
		return nil
	}

	if done {
		g.nextRound()
	}
	return nil
}

// Undo reverses the most recent accepted action within the current round.
// Actions before the round boundary are past the undo horizon.
func (g *Game) Undo() error {
	if g.gameOver {
		return ErrGameOver
	}
	if g.undoable == 0 {
		return ErrNothingToUndo
	}
	if err := g.Moves.Undo(); err != nil {
		return err
	}
	g.undoable--
	g.actions = g.actions[:len(g.actions)-1]
	g.round.invalidate()
	return nil
}

func (g *Game) clearHorizon() {
	g.Moves.Clear()
	g.undoable = 0
}

// nextRound advances the round state machine after the active round
// concluded.
func (g *Game) nextRound() {
	g.clearHorizon()
	switch r := g.round.(type) {
	case *StartRound:
		if r.fallback {
			g.activate(NewOperatingRound(g, 1, 1, r))
		} else {
			g.activate(NewStockRound(g))
		}
	case *StockRound:
		if g.endTriggered {
			g.finish()
			return
		}
		g.activate(NewOperatingRound(g, 1, g.Options.OperatingRounds, nil))
	case *ShareSellingRound:
		g.round = r.resume
		g.round.invalidate()
	case *OperatingRound:
		if g.endTriggered {
			g.finish()
			return
		}
		if r.resume != nil {
			r.resume.fallback = false
			r.resume.ended = false
			g.round = r.resume
			g.round.invalidate()
			return
		}
		if r.number < r.total {
			g.activate(NewOperatingRound(g, r.number+1, r.total, nil))
			return
		}
		g.activate(NewStockRound(g))
	}
}

// activate installs a round, skipping operating rounds with nothing to do.
func (g *Game) activate(r Round) {
	g.round = r
	if or, ok := r.(*OperatingRound); ok && or.finished() {
		g.nextRound()
	}
}

// certLimit is the certificate ceiling for the current player count. An
// unconfigured count means no limit.
func (g *Game) certLimit() int {
	if limit, ok := g.Options.CertLimit[len(g.Players)]; ok {
		return limit
	}
	return 1 << 30
}

// CheckPresidency re-evaluates who holds a company's presidency after share
// transfers. If a player holds strictly more shares than the president, the
// president certificate is exchanged for ordinary certificates of equal
// value; scanning from the president's left seats ties between challengers
// in favor of the first to reach the count.
func (g *Game) CheckPresidency(c *PublicCompany) error {
	pres := c.president
	if pres == nil {
		return nil
	}
	best := pres
	bestShares := pres.Portfolio.SharesOf(c)
	n := len(g.Players)
	for i := 1; i < n; i++ {
		p := g.Players[(pres.Index+i)%n]
		if p.Portfolio.SharesOf(c) > bestShares {
			best = p
			bestShares = p.Portfolio.SharesOf(c)
		}
	}
	if best == pres {
		return nil
	}

	presCert := pres.Portfolio.FindCertificate(c, true)
	if presCert == nil {
		return fmt.Errorf("%w: president certificate of %s missing from %s", ErrCorrupt, c.Symbol, pres.Name)
	}
	// swap: the new president takes the president certificate and hands
	// over the same number of ordinary shares
	for handed := 0; handed < presCert.Shares; {
		cert := best.Portfolio.FindCertificate(c, false)
		if cert == nil {
			return fmt.Errorf("%w: new president %s lacks shares to exchange", ErrCorrupt, best.Name)
		}
		if err := TransferCertificate(g.Moves, cert, best.Portfolio, pres.Portfolio); err != nil {
			return err
		}
		handed += cert.Shares
	}
	if err := TransferCertificate(g.Moves, presCert, pres.Portfolio, best.Portfolio); err != nil {
		return err
	}
	if err := g.Moves.Record(&presidentMove{company: c, old: pres, new: best}); err != nil {
		return err
	}
	g.Log.Info().Str("company", c.Symbol).Str("from", pres.Name).Str("to", best.Name).Msg("presidency changes hands")
	return nil
}

// checkFloat floats a company once enough IPO shares have sold, paying the
// full capitalization into the treasury.
func (g *Game) checkFloat(c *PublicCompany) error {
	if c.floated {
		return nil
	}
	if c.TotalShares-g.Bank.IPO.SharesOf(c) < g.Options.FloatShares {
		return nil
	}
	if err := g.Moves.Record(newBoolMove(c.Symbol+" floated", &c.floated, true)); err != nil {
		return err
	}
	if err := TransferCash(g.Moves, g.Bank.Account, c.Treasury, c.parPrice*c.TotalShares); err != nil {
		return err
	}
	g.Log.Info().Str("company", c.Symbol).Int("capital", c.parPrice*c.TotalShares).Msg("company floated")
	return nil
}

// advancePhase bumps the train phase when a higher train type is first
// bought and scraps every train the new phase rusts.
func (g *Game) advancePhase(spec *TrainSpec) error {
	idx := -1
	for i := range g.Options.Trains {
		if g.Options.Trains[i].Name == spec.Name {
			idx = i
			break
		}
	}
	if idx <= g.phase {
		return nil
	}
	if err := g.Moves.Record(newIntMove("train phase", &g.phase, idx)); err != nil {
		return err
	}
	g.Log.Info().Str("phase", spec.Name).Msg("phase change")

	if spec.Rusts == "" {
		return nil
	}
	portfolios := []*Portfolio{g.Bank.IPO, g.Bank.Pool}
	for _, c := range g.Companies {
		portfolios = append(portfolios, c.Portfolio)
	}
	for _, pf := range portfolios {
		for _, t := range pf.Trains() {
			if t.Name != spec.Rusts || t.rusted {
				continue
			}
			if err := g.Moves.Record(newBoolMove(t.Name+" train rusted", &t.rusted, true)); err != nil {
				return err
			}
			if err := TransferTrain(g.Moves, t, pf, g.Bank.ScrapHeap); err != nil {
				return err
			}
		}
	}
	g.Log.Info().Str("rusted", spec.Rusts).Msg("trains rusted")
	return nil
}

// finish computes final standings: net worth, best first, net-worth ties
// broken by seating order.
func (g *Game) finish() {
	g.clearHorizon()
	g.gameOver = true
	for _, p := range g.Players {
		g.result = append(g.result, PlayerScore{Player: p.Name, Worth: p.NetWorth(g)})
	}
	// g.result is built in seat order, so a stable sort keeps the earlier
	// seat ahead on equal worth.
	sort.SliceStable(g.result, func(i, j int) bool {
		return g.result[i].Worth > g.result[j].Worth
	})
	if len(g.result) > 0 {
		g.Log.Info().Str("winner", g.result[0].Player).Int("worth", g.result[0].Worth).Msg("game over")
	}
}

// Replay rebuilds a session by re-applying an accepted-action log to a fresh
// setup. Process is deterministic given identical state, so the resulting
// game matches the original exactly.
func Replay(opts Options, playerNames []string, log zerolog.Logger, actions []Action) (*Game, error) {
	g, err := NewGame(opts, playerNames, log)
	if err != nil {
		return nil, err
	}
	for i, a := range actions {
		if err := g.Process(a); err != nil {
			return nil, fmt.Errorf("replay failed at action %d (%s): %w", i, a.String(), err)
		}
	}
	return g, nil
}
