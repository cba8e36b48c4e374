package engine

// Player is one seat at the table. Seating order is fixed; turn order is
// computed from it.
type Player struct {
	Index     int
	Name      string
	Account   *Account
	Portfolio *Portfolio

	// net worth cache, invalidated by the move stack revision
	worthRev int
	worthVal int
	worthSet bool
}

// NetWorth is cash plus market value of held certificates plus face value of
// held private companies. Recomputed lazily when any move has been applied or
// reverted since the last read, so it is never stale past the next read.
func (p *Player) NetWorth(g *Game) int {
	rev := g.Moves.Revision()
	if p.worthSet && p.worthRev == rev {
		return p.worthVal
	}
	worth := p.Account.Cash()
	for _, cert := range p.Portfolio.Certificates() {
		worth += cert.Shares * cert.Company.SharePrice()
	}
	for _, pc := range p.Portfolio.Privates() {
		worth += pc.Price
	}
	p.worthRev = rev
	p.worthVal = worth
	p.worthSet = true
	return worth
}

// PublicCompany is a share company with a treasury, a price token and up to
// one president at a time.
type PublicCompany struct {
	Symbol      string
	Name        string
	TotalShares int
	Treasury    *Account
	Portfolio   *Portfolio

	president   *Player
	space       *StockSpace
	parPrice    int
	floated     bool
	lastRevenue int
	tilesLaid   int
	tokensLaid  int
	hasOperated bool
}

// President returns the current president, nil before the company is started.
func (c *PublicCompany) President() *Player { return c.president }

// Space returns the stock space holding the company's price token, nil while
// the company is off the market.
func (c *PublicCompany) Space() *StockSpace { return c.space }

// SharePrice returns the current market price per share, 0 off market.
func (c *PublicCompany) SharePrice() int {
	if c.space == nil {
		return 0
	}
	return c.space.Price
}

// ParPrice returns the initial offering price per share.
func (c *PublicCompany) ParPrice() int { return c.parPrice }

// Floated reports whether enough shares have sold for the company to operate.
func (c *PublicCompany) Floated() bool { return c.floated }

// LastRevenue returns the revenue of the company's most recent train run.
func (c *PublicCompany) LastRevenue() int { return c.lastRevenue }

// ShareUnit is the percentage one share represents.
func (c *PublicCompany) ShareUnit() int { return 100 / c.TotalShares }

// PrivateCompany is a start-packet item: a fixed price, a fixed revenue paid
// to its owner at the start of each operating round.
type PrivateCompany struct {
	Name    string
	Price   int
	Revenue int
}

// Train is a purchasable train. Rusted trains sit in the bank's scrap heap
// and generate no revenue.
type Train struct {
	Name    string
	Price   int
	Revenue int
	rusted  bool
}

// Rusted reports whether the train has been removed from play.
func (t *Train) Rusted() bool { return t.rusted }
