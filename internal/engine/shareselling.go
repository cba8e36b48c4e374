package engine

// ShareSellingRound interrupts an operating round when a president must
// raise cash for a forced train purchase. Only the president acts, only
// sales are legal, and the round ends as soon as the purchase is affordable
// (or nothing sellable remains).
type ShareSellingRound struct {
	baseRound
	resume  *OperatingRound
	company *PublicCompany // the company that needs the train
}

// NewShareSellingRound interposes an emergency selling round for the
// president of the given company.
func NewShareSellingRound(g *Game, or *OperatingRound, c *PublicCompany) *ShareSellingRound {
	g.Log.Info().Str("company", c.Symbol).Str("president", c.president.Name).Msg("emergency share selling begins")
	return &ShareSellingRound{resume: or, company: c}
}

// Name implements Round.
func (r *ShareSellingRound) Name() string { return "Share Selling Round" }

// CurrentPlayer implements Round.
func (r *ShareSellingRound) CurrentPlayer(g *Game) *Player { return r.company.president }

// target is the cash still missing for the cheapest train.
func (r *ShareSellingRound) target(g *Game) int {
	spec, price, _ := (&OperatingRound{}).trainOffer(g, r.company)
	if spec == nil {
		return 0
	}
	budget := r.company.Treasury.FreeCash() + r.company.president.Account.FreeCash()
	if budget >= price {
		return 0
	}
	return price - budget
}

// PossibleActions implements Round.
func (r *ShareSellingRound) PossibleActions(g *Game) []Action {
	return r.cache(func() []Action {
		president := r.company.president
		var actions []Action
		for _, c := range g.Companies {
			if c.space == nil {
				continue
			}
			max := r.maxSellable(g, president, c)
			for count := 1; count <= max; count++ {
				actions = append(actions, Action{
					Type:    ActionSellShares,
					Player:  president.Name,
					Company: c.Symbol,
					Count:   count,
					Amount:  count * c.SharePrice(),
				})
			}
		}
		return actions
	})
}

// maxSellable mirrors the stock round bound: ordinary certificates only,
// within the pool limit.
func (r *ShareSellingRound) maxSellable(g *Game, p *Player, c *PublicCompany) int {
	ordinary := 0
	for _, cert := range p.Portfolio.Certificates() {
		if cert.Company == c && !cert.President {
			ordinary += cert.Shares
		}
	}
	poolRoom := g.Options.PoolShareLimit - g.Bank.Pool.SharesOf(c)
	if poolRoom < 0 {
		poolRoom = 0
	}
	if ordinary < poolRoom {
		return ordinary
	}
	return poolRoom
}

// Process implements Round.
func (r *ShareSellingRound) Process(g *Game, a Action) (bool, error) {
	defer r.invalidate()
	if a.Type != ActionSellShares {
		return false, invalidf("only sales are allowed while raising train money")
	}
	president := r.company.president
	c := g.CompanyBySymbol(a.Company)
	if c == nil {
		return false, invalidf("no company %s", a.Company)
	}
	if a.Count < 1 || a.Count > r.maxSellable(g, president, c) {
		return false, invalidf("%s cannot sell %d share(s) of %s", president.Name, a.Count, c.Symbol)
	}

	price := c.SharePrice()
	sold := 0
	for sold < a.Count {
		cert := president.Portfolio.FindCertificate(c, false)
		if cert == nil {
			return false, invalidf("%s has no ordinary share of %s left", president.Name, c.Symbol)
		}
		if err := TransferCertificate(g.Moves, cert, president.Portfolio, g.Bank.Pool); err != nil {
			return false, err
		}
		sold += cert.Shares
	}
	if err := TransferCash(g.Moves, g.Bank.Account, president.Account, price*sold); err != nil {
		return false, err
	}
	if err := g.Market.MoveDown(g.Moves, c, sold); err != nil {
		return false, err
	}
	if err := g.CheckPresidency(c); err != nil {
		return false, err
	}
	g.Log.Info().Str("player", president.Name).Str("company", c.Symbol).Int("shares", sold).Msg("emergency sale")

	if r.target(g) == 0 {
		return true, nil
	}
	// nothing left to sell means the effort is over regardless
	for _, c := range g.Companies {
		if r.maxSellable(g, president, c) > 0 {
			return false, nil
		}
	}
	return true, nil
}
