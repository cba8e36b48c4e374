package engine

// StockRound is the share-trading phase. Each turn the current player starts
// a company, buys one share, sells a block of shares, or passes. The round
// ends when every player passes consecutively.
type StockRound struct {
	baseRound
	number    int // 1-based stock round counter for the whole game
	current   int
	passes    int
	lastActor int // seat of the last player to act, for the next priority
}

// NewStockRound begins the game's next stock round at the priority seat.
func NewStockRound(g *Game) *StockRound {
	g.srCount++
	r := &StockRound{number: g.srCount, current: g.priority, lastActor: g.priority}
	g.Log.Info().Int("number", r.number).Str("priority", g.Players[g.priority].Name).Msg("stock round begins")
	return r
}

// Name implements Round.
func (r *StockRound) Name() string { return "Stock Round" }

// CurrentPlayer implements Round.
func (r *StockRound) CurrentPlayer(g *Game) *Player { return g.Players[r.current] }

// Number returns the 1-based stock round counter.
func (r *StockRound) Number() int { return r.number }

// PossibleActions implements Round.
func (r *StockRound) PossibleActions(g *Game) []Action {
	return r.cache(func() []Action {
		player := g.Players[r.current]
		var actions []Action

		underLimit := player.Portfolio.CertCount() < g.certLimit()

		// start an unstarted company by picking a par row
		if underLimit {
			for _, c := range g.Companies {
				if c.space != nil {
					continue
				}
				for _, row := range g.Options.ParRows {
					space := g.Market.SpaceAt(row, g.Options.ParColumn)
					if space == nil {
						continue
					}
					if player.Account.FreeCash() >= 2*space.Price {
						actions = append(actions, Action{
							Type:    ActionStartCompany,
							Player:  player.Name,
							Company: c.Symbol,
							Row:     row,
							Amount:  2 * space.Price,
						})
					}
				}
			}
		}

		// buy one share from IPO (at par) or pool (at market)
		if underLimit {
			for _, c := range g.Companies {
				if c.space == nil {
					continue
				}
				if g.Bank.IPO.FindCertificate(c, false) != nil && player.Account.FreeCash() >= c.parPrice {
					actions = append(actions, Action{
						Type:    ActionBuyShare,
						Player:  player.Name,
						Company: c.Symbol,
						Source:  "ipo",
						Amount:  c.parPrice,
					})
				}
				if g.Bank.Pool.FindCertificate(c, false) != nil && player.Account.FreeCash() >= c.SharePrice() {
					actions = append(actions, Action{
						Type:    ActionBuyShare,
						Player:  player.Name,
						Company: c.Symbol,
						Source:  "pool",
						Amount:  c.SharePrice(),
					})
				}
			}
		}

		// sell blocks to the pool
		if !(g.Options.NoSaleInFirstSR && r.number == 1) {
			for _, c := range g.Companies {
				if c.space == nil {
					continue
				}
				max := r.maxSellable(g, player, c)
				for count := 1; count <= max; count++ {
					actions = append(actions, Action{
						Type:    ActionSellShares,
						Player:  player.Name,
						Company: c.Symbol,
						Count:   count,
						Amount:  count * c.SharePrice(),
					})
				}
			}
		}

		actions = append(actions, Action{Type: ActionPass, Player: player.Name})
		return actions
	})
}

// maxSellable is the largest block the player may sell: bounded by ordinary
// certificates held (the president certificate cannot be dumped) and by the
// pool share limit.
func (r *StockRound) maxSellable(g *Game, p *Player, c *PublicCompany) int {
	ordinary := 0
	for _, cert := range p.Portfolio.Certificates() {
		if cert.Company == c && !cert.President {
			ordinary += cert.Shares
		}
	}
	poolRoom := g.Options.PoolShareLimit - g.Bank.Pool.SharesOf(c)
	if ordinary < poolRoom {
		return ordinary
	}
	if poolRoom < 0 {
		return 0
	}
	return poolRoom
}

// Process implements Round.
func (r *StockRound) Process(g *Game, a Action) (bool, error) {
	defer r.invalidate()
	player := g.Players[r.current]

	switch a.Type {
	case ActionStartCompany:
		if err := r.startCompany(g, player, a); err != nil {
			return false, err
		}
	case ActionBuyShare:
		if err := r.buyShare(g, player, a); err != nil {
			return false, err
		}
	case ActionSellShares:
		if err := r.sellShares(g, player, a); err != nil {
			return false, err
		}
	case ActionPass:
		if err := g.Moves.Record(newIntMove("stock round passes", &r.passes, r.passes+1)); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("stock round turn", &r.current, nextSeat(g, r.current))); err != nil {
			return false, err
		}
		if r.passes >= len(g.Players) {
			g.priority = nextSeat(g, r.lastActor)
			g.Log.Info().Str("priority", g.Players[g.priority].Name).Msg("stock round ends")
			return true, nil
		}
		return false, nil
	default:
		return false, invalidf("%s is not a stock round action", a.Type)
	}

	// any non-pass action resets the pass counter and passes the turn
	if err := g.Moves.Record(newIntMove("stock round passes", &r.passes, 0)); err != nil {
		return false, err
	}
	if err := g.Moves.Record(newIntMove("stock round last actor", &r.lastActor, r.current)); err != nil {
		return false, err
	}
	if err := g.Moves.Record(newIntMove("stock round turn", &r.current, nextSeat(g, r.current))); err != nil {
		return false, err
	}
	return false, nil
}

func (r *StockRound) startCompany(g *Game, player *Player, a Action) error {
	c := g.CompanyBySymbol(a.Company)
	if c == nil {
		return invalidf("no company %s", a.Company)
	}
	if c.space != nil {
		return invalidf("%s has already been started", c.Symbol)
	}
	space := g.Market.SpaceAt(a.Row, g.Options.ParColumn)
	if space == nil {
		return invalidf("no par space at row %d", a.Row)
	}
	if err := g.Market.StartCompany(g.Moves, c, a.Row, g.Options.ParColumn); err != nil {
		return err
	}
	// the president certificate costs two shares at par
	cert := g.Bank.IPO.FindCertificate(c, true)
	if cert == nil {
		return invalidf("president certificate of %s is gone", c.Symbol)
	}
	if err := TransferCash(g.Moves, player.Account, g.Bank.Account, 2*space.Price); err != nil {
		return invalidf("%v", err)
	}
	if err := TransferCertificate(g.Moves, cert, g.Bank.IPO, player.Portfolio); err != nil {
		return err
	}
	if err := g.Moves.Record(&presidentMove{company: c, old: nil, new: player}); err != nil {
		return err
	}
	g.Log.Info().Str("player", player.Name).Str("company", c.Symbol).Int("par", space.Price).Msg("company started")
	return g.checkFloat(c)
}

func (r *StockRound) buyShare(g *Game, player *Player, a Action) error {
	c := g.CompanyBySymbol(a.Company)
	if c == nil {
		return invalidf("no company %s", a.Company)
	}
	var from *Portfolio
	var price int
	switch a.Source {
	case "ipo":
		from, price = g.Bank.IPO, c.parPrice
	case "pool":
		from, price = g.Bank.Pool, c.SharePrice()
	default:
		return invalidf("unknown share source %q", a.Source)
	}
	cert := from.FindCertificate(c, false)
	if cert == nil {
		return invalidf("no %s share available in %s", c.Symbol, from.Name())
	}
	if err := TransferCash(g.Moves, player.Account, g.Bank.Account, price); err != nil {
		return invalidf("%v", err)
	}
	if err := TransferCertificate(g.Moves, cert, from, player.Portfolio); err != nil {
		return err
	}
	if err := g.CheckPresidency(c); err != nil {
		return err
	}
	g.Log.Info().Str("player", player.Name).Str("company", c.Symbol).Int("price", price).Msg("share bought")
	return g.checkFloat(c)
}

func (r *StockRound) sellShares(g *Game, player *Player, a Action) error {
	c := g.CompanyBySymbol(a.Company)
	if c == nil {
		return invalidf("no company %s", a.Company)
	}
	if g.Options.NoSaleInFirstSR && r.number == 1 {
		return invalidf("no sales allowed in the first stock round")
	}
	if a.Count < 1 || a.Count > r.maxSellable(g, player, c) {
		return invalidf("%s cannot sell %d share(s) of %s", player.Name, a.Count, c.Symbol)
	}
	price := c.SharePrice()
	sold := 0
	for sold < a.Count {
		cert := player.Portfolio.FindCertificate(c, false)
		if cert == nil {
			return invalidf("%s has no ordinary share of %s left", player.Name, c.Symbol)
		}
		if err := TransferCertificate(g.Moves, cert, player.Portfolio, g.Bank.Pool); err != nil {
			return err
		}
		sold += cert.Shares
	}
	if err := TransferCash(g.Moves, g.Bank.Account, player.Account, price*sold); err != nil {
		return err
	}
	// the price token drops one row per share sold
	if err := g.Market.MoveDown(g.Moves, c, sold); err != nil {
		return err
	}
	if err := g.CheckPresidency(c); err != nil {
		return err
	}
	g.Log.Info().Str("player", player.Name).Str("company", c.Symbol).Int("shares", sold).Int("price", price).Msg("shares sold")
	return nil
}
