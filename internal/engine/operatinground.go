package engine

import (
	"sort"
)

// Operating round steps, advanced strictly in order for each company.
const (
	stepTile = iota
	stepToken
	stepRun
	stepDividend
	stepTrains
)

// OperatingRound lets each floated company operate in stock price order:
// lay a tile, place a token, run trains, allocate the dividend, buy trains.
// The acting player is always the president of the operating company.
type OperatingRound struct {
	baseRound
	number int // position in the current OR set, 1-based
	total  int // ORs in this set
	resume *StartRound // interleaved from a start round when non-nil

	order       []*PublicCompany
	idx         int
	step        int
	needSelling bool // president must raise cash before the forced train buy
}

// NewOperatingRound fixes the operating order and pays private company
// revenue. The revenue payment is its own closed move set so a later Undo
// stops at the player action that followed it.
func NewOperatingRound(g *Game, number, total int, resume *StartRound) *OperatingRound {
	r := &OperatingRound{number: number, total: total, resume: resume}
	r.order = operatingOrder(g)

	g.Moves.StartSet("private company revenue")
	for _, p := range g.Players {
		for _, pc := range p.Portfolio.Privates() {
			if pc.Revenue > 0 {
				if err := TransferCash(g.Moves, g.Bank.Account, p.Account, pc.Revenue); err != nil {
					g.Log.Error().Err(err).Msg("private revenue payment failed")
				}
			}
		}
	}
	g.Moves.CloseSet()

	g.Log.Info().Int("number", number).Int("of", total).Int("companies", len(r.order)).Msg("operating round begins")
	return r
}

// operatingOrder sorts floated companies by share price, highest first.
// Price ties break by token stack position: the token that arrived on the
// space first operates first.
func operatingOrder(g *Game) []*PublicCompany {
	var order []*PublicCompany
	for _, c := range g.Companies {
		if c.floated {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.SharePrice() != b.SharePrice() {
			return a.SharePrice() > b.SharePrice()
		}
		if a.space == b.space && a.space != nil {
			return a.space.tokenIndex(a) < a.space.tokenIndex(b)
		}
		return a.Symbol < b.Symbol
	})
	return order
}

// Name implements Round.
func (r *OperatingRound) Name() string { return "Operating Round" }

// Number returns the position of this OR within its set.
func (r *OperatingRound) Number() int { return r.number }

// Company returns the currently operating company, nil when none remain.
func (r *OperatingRound) Company() *PublicCompany {
	if r.idx >= len(r.order) {
		return nil
	}
	return r.order[r.idx]
}

// CurrentPlayer implements Round. The president of the operating company
// acts; with no companies the priority holder nominally holds the turn.
func (r *OperatingRound) CurrentPlayer(g *Game) *Player {
	c := r.Company()
	if c == nil || c.president == nil {
		return g.Players[g.priority]
	}
	return c.president
}

func (r *OperatingRound) finished() bool { return r.idx >= len(r.order) }

// PossibleActions implements Round.
func (r *OperatingRound) PossibleActions(g *Game) []Action {
	return r.cache(func() []Action {
		c := r.Company()
		if c == nil {
			return nil
		}
		president := c.president.Name
		var actions []Action

		switch r.step {
		case stepTile:
			actions = append(actions,
				Action{Type: ActionLayTile, Player: president, Company: c.Symbol},
				Action{Type: ActionPass, Player: president, Company: c.Symbol},
			)
		case stepToken:
			if c.tokensLaid < 3 && c.Treasury.FreeCash() >= g.Options.TokenCost {
				actions = append(actions, Action{
					Type: ActionLayToken, Player: president, Company: c.Symbol, Amount: g.Options.TokenCost,
				})
			}
			actions = append(actions, Action{Type: ActionPass, Player: president, Company: c.Symbol})
		case stepRun:
			actions = append(actions, Action{
				Type: ActionRunTrains, Player: president, Company: c.Symbol, Amount: r.trainRevenue(c),
			})
		case stepDividend:
			if c.lastRevenue > 0 {
				actions = append(actions,
					Action{Type: ActionPayout, Player: president, Company: c.Symbol, Amount: c.lastRevenue},
					Action{Type: ActionWithhold, Player: president, Company: c.Symbol, Amount: c.lastRevenue},
				)
			} else {
				actions = append(actions, Action{Type: ActionWithhold, Player: president, Company: c.Symbol})
			}
		case stepTrains:
			spec, price, affordable := r.trainOffer(g, c)
			if spec != nil && affordable {
				actions = append(actions, Action{
					Type: ActionBuyTrain, Player: president, Company: c.Symbol, Train: spec.Name, Amount: price,
				})
			}
			if !(r.mustBuyTrain(c) && affordable) {
				actions = append(actions, Action{Type: ActionPass, Player: president, Company: c.Symbol})
			}
		}
		return actions
	})
}

func (r *OperatingRound) trainRevenue(c *PublicCompany) int {
	total := 0
	for _, t := range c.Portfolio.Trains() {
		if !t.rusted {
			total += t.Revenue
		}
	}
	return total
}

// mustBuyTrain: a floated company without a train is obliged to buy one.
func (r *OperatingRound) mustBuyTrain(c *PublicCompany) bool {
	for _, t := range c.Portfolio.Trains() {
		if !t.rusted {
			return false
		}
	}
	return true
}

// trainOffer returns the next purchasable train type, its price, and whether
// the company can pay. Under a forced purchase the president's free cash
// counts toward affordability.
func (r *OperatingRound) trainOffer(g *Game, c *PublicCompany) (*TrainSpec, int, bool) {
	for i := range g.Options.Trains {
		spec := &g.Options.Trains[i]
		if g.Bank.IPO.FindTrain(spec.Name) == nil {
			continue
		}
		budget := c.Treasury.FreeCash()
		if r.mustBuyTrain(c) && c.president != nil {
			budget += c.president.Account.FreeCash()
		}
		return spec, spec.Price, budget >= spec.Price
	}
	return nil, 0, false
}

// Process implements Round.
func (r *OperatingRound) Process(g *Game, a Action) (bool, error) {
	defer r.invalidate()
	c := r.Company()
	if c == nil {
		return true, invalidf("no company is operating")
	}

	switch a.Type {
	case ActionLayTile:
		if r.step != stepTile {
			return false, invalidf("%s cannot lay a tile now", c.Symbol)
		}
		if a.Hex == "" {
			return false, invalidf("lay_tile requires a hex")
		}
		if err := g.Moves.Record(newIntMove("tiles laid by "+c.Symbol, &c.tilesLaid, c.tilesLaid+1)); err != nil {
			return false, err
		}
		g.Log.Info().Str("company", c.Symbol).Str("hex", a.Hex).Msg("tile laid")
		return r.advance(g, c, stepToken)

	case ActionLayToken:
		if r.step != stepToken {
			return false, invalidf("%s cannot place a token now", c.Symbol)
		}
		if a.Hex == "" {
			return false, invalidf("lay_token requires a hex")
		}
		if c.tokensLaid >= 3 {
			return false, invalidf("%s has no tokens left", c.Symbol)
		}
		if err := TransferCash(g.Moves, c.Treasury, g.Bank.Account, g.Options.TokenCost); err != nil {
			return false, invalidf("%v", err)
		}
		if err := g.Moves.Record(newIntMove("tokens laid by "+c.Symbol, &c.tokensLaid, c.tokensLaid+1)); err != nil {
			return false, err
		}
		g.Log.Info().Str("company", c.Symbol).Str("hex", a.Hex).Msg("token placed")
		return r.advance(g, c, stepRun)

	case ActionRunTrains:
		if r.step != stepRun {
			return false, invalidf("%s cannot run trains now", c.Symbol)
		}
		revenue := r.trainRevenue(c)
		if a.Amount != revenue {
			return false, invalidf("%s runs for %d, not %d", c.Symbol, revenue, a.Amount)
		}
		if err := g.Moves.Record(newIntMove("revenue of "+c.Symbol, &c.lastRevenue, revenue)); err != nil {
			return false, err
		}
		g.Log.Info().Str("company", c.Symbol).Int("revenue", revenue).Msg("trains run")
		return r.advance(g, c, stepDividend)

	case ActionPayout:
		if r.step != stepDividend || c.lastRevenue <= 0 {
			return false, invalidf("%s cannot pay out now", c.Symbol)
		}
		if err := r.payout(g, c); err != nil {
			return false, err
		}
		return r.advance(g, c, stepTrains)

	case ActionWithhold:
		if r.step != stepDividend {
			return false, invalidf("%s cannot withhold now", c.Symbol)
		}
		if err := r.withhold(g, c); err != nil {
			return false, err
		}
		return r.advance(g, c, stepTrains)

	case ActionBuyTrain:
		if r.step != stepTrains {
			return false, invalidf("%s cannot buy a train now", c.Symbol)
		}
		if err := r.buyTrain(g, c, a); err != nil {
			return false, err
		}
		return r.advance(g, c, stepTrains+1)

	case ActionPass:
		switch r.step {
		case stepTile:
			return r.advance(g, c, stepToken)
		case stepToken:
			return r.advance(g, c, stepRun)
		case stepTrains:
			if _, _, affordable := r.trainOffer(g, c); r.mustBuyTrain(c) && affordable {
				return false, invalidf("%s must buy a train", c.Symbol)
			}
			return r.advance(g, c, stepTrains+1)
		default:
			return false, invalidf("%s cannot pass this step", c.Symbol)
		}
	}
	return false, invalidf("%s is not an operating round action", a.Type)
}

// advance moves to the given step, or to the next company when past the
// train step. Reaching the train step of a trainless company that cannot pay
// even with president cash flags an emergency share-selling round.
func (r *OperatingRound) advance(g *Game, c *PublicCompany, step int) (bool, error) {
	if step > stepTrains {
		if err := g.Moves.Record(newIntMove("operating company index", &r.idx, r.idx+1)); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("operating step", &r.step, stepTile)); err != nil {
			return false, err
		}
		return r.finished(), nil
	}
	if err := g.Moves.Record(newIntMove("operating step", &r.step, step)); err != nil {
		return false, err
	}
	if step == stepTrains && r.mustBuyTrain(c) {
		if spec, _, affordable := r.trainOffer(g, c); spec != nil && !affordable {
			if r.presidentCanRaise(g, c) {
				r.needSelling = true
			}
		}
	}
	return false, nil
}

// presidentCanRaise reports whether the president holds any sellable share.
func (r *OperatingRound) presidentCanRaise(g *Game, c *PublicCompany) bool {
	p := c.president
	if p == nil {
		return false
	}
	for _, cert := range p.Portfolio.Certificates() {
		if cert.President {
			continue
		}
		if cert.Company.SharePrice() > 0 &&
			g.Bank.Pool.SharesOf(cert.Company) < g.Options.PoolShareLimit {
			return true
		}
	}
	return false
}

// payout distributes the revenue per share to every holding player and to
// the company for its own treasury shares. Dividends on IPO and pool shares
// stay in the bank. A full payout moves the price token up.
func (r *OperatingRound) payout(g *Game, c *PublicCompany) error {
	perShare := c.lastRevenue / c.TotalShares
	for _, p := range g.Players {
		if n := p.Portfolio.SharesOf(c); n > 0 {
			if err := TransferCash(g.Moves, g.Bank.Account, p.Account, perShare*n); err != nil {
				return err
			}
		}
	}
	if n := c.Portfolio.SharesOf(c); n > 0 {
		if err := TransferCash(g.Moves, g.Bank.Account, c.Treasury, perShare*n); err != nil {
			return err
		}
	}
	g.Log.Info().Str("company", c.Symbol).Int("revenue", c.lastRevenue).Int("per_share", perShare).Msg("dividend paid out")
	return g.Market.MoveUp(g.Moves, c)
}

// withhold retains the full revenue in the treasury and drops the price one
// row.
func (r *OperatingRound) withhold(g *Game, c *PublicCompany) error {
	if c.lastRevenue > 0 {
		if err := TransferCash(g.Moves, g.Bank.Account, c.Treasury, c.lastRevenue); err != nil {
			return err
		}
	}
	g.Log.Info().Str("company", c.Symbol).Int("revenue", c.lastRevenue).Msg("dividend withheld")
	return g.Market.MoveDown(g.Moves, c, 1)
}

// buyTrain buys the offered train type from the bank. Under a forced
// purchase the president covers the part the treasury cannot.
func (r *OperatingRound) buyTrain(g *Game, c *PublicCompany, a Action) error {
	spec, price, affordable := r.trainOffer(g, c)
	if spec == nil {
		return invalidf("no trains left to buy")
	}
	if spec.Name != a.Train {
		return invalidf("only %s trains are on offer", spec.Name)
	}
	if !affordable {
		return invalidf("%s cannot afford a %s train", c.Symbol, spec.Name)
	}
	train := g.Bank.IPO.FindTrain(spec.Name)
	if train == nil {
		return invalidf("no %s train left", spec.Name)
	}

	fromTreasury := price
	if fromTreasury > c.Treasury.FreeCash() {
		fromTreasury = c.Treasury.FreeCash()
	}
	topUp := price - fromTreasury
	if topUp > 0 {
		if !r.mustBuyTrain(c) {
			return invalidf("%s treasury cannot afford a %s train", c.Symbol, spec.Name)
		}
		if err := TransferCash(g.Moves, c.president.Account, g.Bank.Account, topUp); err != nil {
			return invalidf("%v", err)
		}
		g.Log.Info().Str("president", c.president.Name).Int("amount", topUp).Msg("president contributes to forced train purchase")
	}
	if fromTreasury > 0 {
		if err := TransferCash(g.Moves, c.Treasury, g.Bank.Account, fromTreasury); err != nil {
			return invalidf("%v", err)
		}
	}
	if err := TransferTrain(g.Moves, train, g.Bank.IPO, c.Portfolio); err != nil {
		return err
	}
	g.Log.Info().Str("company", c.Symbol).Str("train", spec.Name).Int("price", price).Msg("train bought")
	return g.advancePhase(spec)
}
