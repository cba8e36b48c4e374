package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarket() *StockMarket {
	return NewStockMarket([][]int{
		{60, 70, 80},
		{50, 60, 70},
		{40, 50, 0},
	})
}

func TestStockMarketHolesAndBounds(t *testing.T) {
	m := testMarket()

	require.NotNil(t, m.SpaceAt(0, 0))
	assert.Equal(t, 60, m.SpaceAt(0, 0).Price)
	assert.Nil(t, m.SpaceAt(2, 2), "zero price is a hole")
	assert.Nil(t, m.SpaceAt(-1, 0))
	assert.Nil(t, m.SpaceAt(3, 0))
	assert.Nil(t, m.SpaceAt(0, 3))
	assert.Equal(t, 3, m.Rows())
}

func TestStartCompanySetsTokenAndPar(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	m := testMarket()
	c := testCompany("PRR")

	require.NoError(t, m.StartCompany(s, c, 1, 1))
	assert.Equal(t, 60, c.SharePrice())
	assert.Equal(t, 60, c.ParPrice())
	assert.Equal(t, "B2", c.Space().Coord())

	// a second start is rejected
	require.Error(t, m.StartCompany(s, c, 0, 0))
}

func TestMoveDownStopsAtBottom(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	m := testMarket()
	c := testCompany("PRR")
	require.NoError(t, m.StartCompany(s, c, 0, 0))

	require.NoError(t, m.MoveDown(s, c, 5))
	assert.Equal(t, 2, c.Space().Row, "token clamps at the bottom row")
	assert.Equal(t, 40, c.SharePrice())
}

func TestMoveUpStopsAtRightEdge(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	m := testMarket()
	c := testCompany("PRR")
	require.NoError(t, m.StartCompany(s, c, 0, 1))

	require.NoError(t, m.MoveUp(s, c))
	assert.Equal(t, 80, c.SharePrice())
	require.NoError(t, m.MoveUp(s, c))
	assert.Equal(t, 80, c.SharePrice(), "token clamps at the right edge")
}

func TestTokenStackPreservesArrivalOrder(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	m := testMarket()
	a := testCompany("AAA")
	b := testCompany("BBB")

	require.NoError(t, m.StartCompany(s, a, 0, 0))
	require.NoError(t, m.StartCompany(s, b, 0, 0))

	tokens := m.SpaceAt(0, 0).Tokens()
	require.Len(t, tokens, 2)
	assert.Same(t, a, tokens[0], "first arrival sits lowest in the stack")
	assert.Same(t, b, tokens[1])
}

func TestTokenMoveUndoRestoresStackPosition(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	m := testMarket()
	a := testCompany("AAA")
	b := testCompany("BBB")
	require.NoError(t, m.StartCompany(s, a, 0, 0))
	require.NoError(t, m.StartCompany(s, b, 0, 0))
	s.CloseSet()

	s.StartSet("drop")
	require.NoError(t, m.MoveDown(s, a, 1))
	s.CloseSet()
	require.NoError(t, s.Undo())

	tokens := m.SpaceAt(0, 0).Tokens()
	require.Len(t, tokens, 2)
	assert.Same(t, a, tokens[0], "undo restores the token at its old stack index")
}
