package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPlayerOptions shrinks the 1830 rule set to a two-player table that
// reaches an operating round in a handful of actions.
func twoPlayerOptions() Options {
	o := options1830()
	o.Privates = []PrivateSpec{{Name: "Coal Mine", Price: 20, Revenue: 5}}
	o.Companies = o.Companies[:2]
	o.StartingCash = map[int]int{2: 400}
	o.CertLimit = map[int]int{2: 99}
	o.FloatShares = 3
	o.OperatingRounds = 1
	return o
}

// playToOperatingRound buys the packet, starts PRR at a par of 85 and sells
// enough shares to float it, then passes the stock round out.
func playToOperatingRound(t *testing.T, g *Game) {
	t.Helper()
	require.NoError(t, g.Process(Action{Type: ActionBuyStartItem, Player: "Alice", Item: "Coal Mine"}))
	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 3}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Alice", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Bob"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.Equal(t, "Operating Round", g.Round().Name())
}

func TestOperatingRoundPaysPrivateRevenue(t *testing.T) {
	g, err := NewGame(twoPlayerOptions(), []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)
	playToOperatingRound(t, g)

	// Alice: 400 - 20 (private) - 170 (president cert) - 85 (share) + 5 revenue
	assert.Equal(t, 130, g.PlayerByName("Alice").Account.Cash())
	assert.Equal(t, 315, g.PlayerByName("Bob").Account.Cash())
}

func TestOperatingRoundFullTurn(t *testing.T) {
	g, err := NewGame(twoPlayerOptions(), []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)
	playToOperatingRound(t, g)
	prr := g.CompanyBySymbol("PRR")
	require.Equal(t, 850, prr.Treasury.Cash())

	// the president of the operating company acts
	assert.Equal(t, "Alice", g.CurrentPlayer().Name)

	require.NoError(t, g.Process(Action{Type: ActionLayTile, Player: "Alice", Company: "PRR", Hex: "D10"}))
	require.NoError(t, g.Process(Action{Type: ActionLayToken, Player: "Alice", Company: "PRR", Hex: "D10"}))
	assert.Equal(t, 810, prr.Treasury.Cash(), "token cost paid to the bank")

	// no trains yet, so the run is worth nothing and only withhold is legal
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 0}))
	legal := g.PossibleActions()
	require.Len(t, legal, 1)
	assert.Equal(t, ActionWithhold, legal[0].Type)
	require.NoError(t, g.Process(Action{Type: ActionWithhold, Player: "Alice", Company: "PRR"}))
	assert.Equal(t, 80, prr.SharePrice(), "withholding drops the price one row")

	// a trainless company must buy a train it can afford; passing is illegal
	legal = g.PossibleActions()
	require.Len(t, legal, 1)
	assert.Equal(t, ActionBuyTrain, legal[0].Type)
	err = g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	require.NoError(t, g.Process(Action{Type: ActionBuyTrain, Player: "Alice", Company: "PRR", Train: "2"}))
	assert.Equal(t, 730, prr.Treasury.Cash())
	assert.NotNil(t, prr.Portfolio.FindTrain("2"))

	// the only company has operated, so the single-OR set is over
	assert.Equal(t, "Stock Round", g.Round().Name())
}

func TestOperatingRoundPayout(t *testing.T) {
	g, err := NewGame(twoPlayerOptions(), []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)
	playToOperatingRound(t, g)

	require.NoError(t, g.Process(Action{Type: ActionLayTile, Player: "Alice", Company: "PRR", Hex: "D10"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"})) // skip the token
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 0}))
	require.NoError(t, g.Process(Action{Type: ActionWithhold, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionBuyTrain, Player: "Alice", Company: "PRR", Train: "2"}))

	// next stock round: everyone passes into the second operating round
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: g.CurrentPlayer().Name}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: g.CurrentPlayer().Name}))
	require.Equal(t, "Operating Round", g.Round().Name())

	prr := g.CompanyBySymbol("PRR")
	alice := g.PlayerByName("Alice")
	bob := g.PlayerByName("Bob")
	aliceBefore := alice.Account.Cash()
	bobBefore := bob.Account.Cash()
	priceBefore := prr.SharePrice()

	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 30}))
	require.NoError(t, g.Process(Action{Type: ActionPayout, Player: "Alice", Company: "PRR"}))

	// 30 over 10 shares: Alice holds three, Bob one; IPO dividends stay in
	// the bank
	assert.Equal(t, aliceBefore+9, alice.Account.Cash())
	assert.Equal(t, bobBefore+3, bob.Account.Cash())
	assert.Greater(t, prr.SharePrice(), priceBefore, "a full payout moves the price up")
}

func TestOperatingRoundRejectsWrongRevenue(t *testing.T) {
	g, err := NewGame(twoPlayerOptions(), []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)
	playToOperatingRound(t, g)

	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	err = g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 999})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

// emergencyOptions forces a train purchase the treasury cannot cover alone.
func emergencyOptions() Options {
	o := options1830()
	o.Privates = nil
	o.Companies = o.Companies[:1]
	o.StartingCash = map[int]int{2: 200}
	o.CertLimit = map[int]int{2: 99}
	o.FloatShares = 2
	o.OperatingRounds = 1
	o.ParColumn = 0
	o.ParRows = []int{3}
	o.Trains = []TrainSpec{{Name: "2", Price: 520, Revenue: 30, Count: 2}}
	return o
}

func TestForcedTrainPurchaseTriggersShareSelling(t *testing.T) {
	g, err := NewGame(emergencyOptions(), []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)

	// empty start packet: the first action ends the auction
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 3}))
	prr := g.CompanyBySymbol("PRR")
	require.True(t, prr.Floated())
	require.Equal(t, 450, prr.Treasury.Cash())
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Alice", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Bob"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.Equal(t, "Operating Round", g.Round().Name())

	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 0}))
	require.NoError(t, g.Process(Action{Type: ActionWithhold, Player: "Alice", Company: "PRR"}))

	// treasury 450 plus the president's 65 misses the 520 train; Alice
	// holds a sellable share, so an emergency selling round interposes
	require.Equal(t, "Share Selling Round", g.Round().Name())
	assert.Equal(t, "Alice", g.CurrentPlayer().Name)

	legal := g.PossibleActions()
	require.Len(t, legal, 1)
	assert.Equal(t, ActionSellShares, legal[0].Type)

	require.NoError(t, g.Process(Action{Type: ActionSellShares, Player: "Alice", Company: "PRR", Count: 1}))

	// the sale closed the gap; back in the operating round the purchase is
	// forced, with the president topping the treasury up
	require.Equal(t, "Operating Round", g.Round().Name())
	require.NoError(t, g.Process(Action{Type: ActionBuyTrain, Player: "Alice", Company: "PRR", Train: "2"}))
	assert.Equal(t, 0, prr.Treasury.Cash())
	assert.Equal(t, 35, g.PlayerByName("Alice").Account.Cash())
	assert.NotNil(t, prr.Portfolio.FindTrain("2"))
}

func TestPhaseChangeRustsTrains(t *testing.T) {
	o := options1830()
	o.Privates = nil
	o.Companies = o.Companies[:1]
	o.StartingCash = map[int]int{2: 400}
	o.CertLimit = map[int]int{2: 99}
	o.FloatShares = 2
	o.OperatingRounds = 1
	o.Trains = []TrainSpec{
		{Name: "2", Price: 80, Revenue: 30, Count: 1},
		{Name: "3", Price: 180, Revenue: 60, Count: 2, Rusts: "2"},
	}
	g, err := NewGame(o, []string{"Alice", "Bob"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Bob"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.Equal(t, "Operating Round", g.Round().Name())
	prr := g.CompanyBySymbol("PRR")

	// first OR: buy the last 2-train
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 0}))
	require.NoError(t, g.Process(Action{Type: ActionWithhold, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionBuyTrain, Player: "Alice", Company: "PRR", Train: "2"}))
	assert.Equal(t, "2", g.Phase())

	// stock round out, second OR: the 3-train purchase rusts the 2
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: g.CurrentPlayer().Name}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: g.CurrentPlayer().Name}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionRunTrains, Player: "Alice", Company: "PRR", Amount: 30}))
	require.NoError(t, g.Process(Action{Type: ActionPayout, Player: "Alice", Company: "PRR"}))
	require.NoError(t, g.Process(Action{Type: ActionBuyTrain, Player: "Alice", Company: "PRR", Train: "3"}))

	assert.Equal(t, "3", g.Phase())
	assert.Nil(t, prr.Portfolio.FindTrain("2"), "the 2-train rusted away")
	assert.NotNil(t, prr.Portfolio.FindTrain("3"))
	require.Len(t, g.Bank.ScrapHeap.Trains(), 1)
	assert.True(t, g.Bank.ScrapHeap.Trains()[0].Rusted())
}
