package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockRoundStartCompany(t *testing.T) {
	g := newGame1830(t, "Alice", "Bob", "Carol")
	startRoundBuyAll(t, g)

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))

	prr := g.CompanyBySymbol("PRR")
	alice := g.PlayerByName("Alice")
	assert.Equal(t, 100, prr.ParPrice())
	assert.Equal(t, 100, prr.SharePrice())
	assert.Same(t, alice, prr.President())
	assert.Equal(t, 470, alice.Account.Cash())
	assert.Equal(t, 2, alice.Portfolio.SharesOf(prr))
	assert.False(t, prr.Floated())
	assert.Equal(t, 10, g.SharesInPlay(prr))
}

func TestStockRoundFloatPaysCapitalization(t *testing.T) {
	g := newGame1830(t, "Alice", "Bob", "Carol")
	startRoundBuyAll(t, g)
	prr := g.CompanyBySymbol("PRR")

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	for _, p := range []string{"Bob", "Carol", "Alice"} {
		require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: p, Company: "PRR", Source: "ipo"}))
	}
	assert.False(t, prr.Floated(), "five of six float shares sold")

	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
	assert.True(t, prr.Floated())
	assert.Equal(t, 1000, prr.Treasury.Cash(), "full capitalization at par")
	assert.Equal(t, 10, g.SharesInPlay(prr))
}

func TestStockRoundNoSaleInFirstStockRound(t *testing.T) {
	g := newGame1830(t, "Alice", "Bob", "Carol")
	startRoundBuyAll(t, g)
	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
	// Carol's turn; nobody may sell in the first stock round
	for _, a := range g.PossibleActions() {
		assert.NotEqual(t, ActionSellShares, a.Type)
	}
	bobCash := g.PlayerByName("Bob").Account.Cash()
	err := g.Process(Action{Type: ActionSellShares, Player: "Carol", Company: "PRR", Count: 1})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, bobCash, g.PlayerByName("Bob").Account.Cash())
}

func TestStockRoundPresidencyFollowsLargestHolder(t *testing.T) {
	g := newGame1830(t, "Alice", "Bob", "Carol")
	startRoundBuyAll(t, g)
	prr := g.CompanyBySymbol("PRR")
	alice := g.PlayerByName("Alice")
	bob := g.PlayerByName("Bob")

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	buyBob := Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}

	require.NoError(t, g.Process(buyBob))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.NoError(t, g.Process(buyBob))
	assert.Same(t, alice, prr.President(), "a tie at two shares keeps the presidency")

	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.NoError(t, g.Process(buyBob))

	assert.Same(t, bob, prr.President())
	assert.Equal(t, 3, bob.Portfolio.SharesOf(prr))
	assert.Equal(t, 2, alice.Portfolio.SharesOf(prr))
	assert.NotNil(t, bob.Portfolio.FindCertificate(prr, true))
	assert.Nil(t, alice.Portfolio.FindCertificate(prr, true))
	assert.Equal(t, 10, g.SharesInPlay(prr), "the swap conserves shares")
}

func TestStockRoundEndsAfterFullPassCircle(t *testing.T) {
	g := newGame1830(t, "Alice", "Bob", "Carol")
	startRoundBuyAll(t, g)
	aliceBefore := g.PlayerByName("Alice").Account.Cash()

	for _, p := range []string{"Alice", "Bob", "Carol"} {
		require.NoError(t, g.Process(Action{Type: ActionPass, Player: p}))
	}

	// no company floated, so both operating rounds were skipped straight
	// into the next stock round; private revenue was still paid twice
	sr, ok := g.Round().(*StockRound)
	require.True(t, ok)
	assert.Equal(t, 2, sr.Number())
	assert.Equal(t, "Bob", g.CurrentPlayer().Name, "priority moves left of the last actor")
	assert.Equal(t, aliceBefore+2*25, g.PlayerByName("Alice").Account.Cash())
}

func TestStockRoundSellDropsPriceAndPaysBank(t *testing.T) {
	// the 1835 rules allow selling in the first stock round
	opts, err := VariantOptions("1835")
	require.NoError(t, err)
	g, err := NewGame(opts, []string{"Alice", "Bob", "Carol"}, zerolog.Nop())
	require.NoError(t, err)
	startRoundBuyAll(t, g)
	prr := g.CompanyBySymbol("PRR")
	alice := g.PlayerByName("Alice")

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Alice", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Bob"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))

	cashBefore := alice.Account.Cash()
	require.NoError(t, g.Process(Action{Type: ActionSellShares, Player: "Alice", Company: "PRR", Count: 1}))

	assert.Equal(t, cashBefore+100, alice.Account.Cash(), "sale settles at the pre-drop price")
	assert.Equal(t, 95, prr.SharePrice(), "one row down per share sold")
	assert.Equal(t, 1, g.Bank.Pool.SharesOf(prr))
	assert.Equal(t, 2, alice.Portfolio.SharesOf(prr))
	assert.Same(t, alice, prr.President(), "the president certificate is never dumped")
	assert.Equal(t, 10, g.SharesInPlay(prr))
}

func TestStockRoundSellClampedByPoolShareLimit(t *testing.T) {
	opts, err := VariantOptions("1835")
	require.NoError(t, err)
	opts.PoolShareLimit = 2
	g, err := NewGame(opts, []string{"Alice", "Bob", "Carol"}, zerolog.Nop())
	require.NoError(t, err)
	startRoundBuyAll(t, g)
	prr := g.CompanyBySymbol("PRR")
	bob := g.PlayerByName("Bob")

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
		require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
		require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	}
	require.Equal(t, 3, bob.Portfolio.SharesOf(prr))

	// Bob holds three ordinary shares but the pool only has room for two
	counts := map[int]bool{}
	for _, a := range g.PossibleActions() {
		if a.Type == ActionSellShares && a.Company == "PRR" {
			counts[a.Count] = true
		}
	}
	assert.True(t, counts[1])
	assert.True(t, counts[2])
	assert.False(t, counts[3], "a sale past the pool limit is never offered")
	assert.ErrorIs(t, g.Process(Action{Type: ActionSellShares, Player: "Bob", Company: "PRR", Count: 3}), ErrInvalidAction)

	require.NoError(t, g.Process(Action{Type: ActionSellShares, Player: "Bob", Company: "PRR", Count: 2}))
	assert.Equal(t, 2, g.Bank.Pool.SharesOf(prr))

	// the pool is full; Bob's remaining share cannot be sold
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	for _, a := range g.PossibleActions() {
		assert.NotEqual(t, ActionSellShares, a.Type)
	}
	assert.ErrorIs(t, g.Process(Action{Type: ActionSellShares, Player: "Bob", Company: "PRR", Count: 1}), ErrInvalidAction)
	assert.Equal(t, 2, g.Bank.Pool.SharesOf(prr))
}

func TestStockRoundBuyFromPool(t *testing.T) {
	opts, err := VariantOptions("1835")
	require.NoError(t, err)
	g, err := NewGame(opts, []string{"Alice", "Bob", "Carol"}, zerolog.Nop())
	require.NoError(t, err)
	startRoundBuyAll(t, g)
	prr := g.CompanyBySymbol("PRR")

	require.NoError(t, g.Process(Action{Type: ActionStartCompany, Player: "Alice", Company: "PRR", Row: 0}))
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Bob", Company: "PRR", Source: "ipo"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Carol"}))
	require.NoError(t, g.Process(Action{Type: ActionPass, Player: "Alice"}))
	require.NoError(t, g.Process(Action{Type: ActionSellShares, Player: "Bob", Company: "PRR", Count: 1}))

	// pool shares sell at market, not at par
	carol := g.PlayerByName("Carol")
	cashBefore := carol.Account.Cash()
	require.NoError(t, g.Process(Action{Type: ActionBuyShare, Player: "Carol", Company: "PRR", Source: "pool"}))
	assert.Equal(t, cashBefore-95, carol.Account.Cash())
	assert.Equal(t, 0, g.Bank.Pool.SharesOf(prr))
}
