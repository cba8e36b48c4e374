package engine

import (
	"fmt"
)

// StockSpace is one cell of the price grid. The token stack encodes ties:
// the token lowest in the stack (index 0) arrived first and sells first.
type StockSpace struct {
	Row    int
	Col    int
	Price  int
	tokens []*PublicCompany
}

// Coord returns the grid coordinate in spreadsheet style (column letter,
// row number).
func (s *StockSpace) Coord() string {
	return fmt.Sprintf("%c%d", 'A'+s.Col, s.Row+1)
}

// Tokens returns the price tokens on this space, oldest first.
func (s *StockSpace) Tokens() []*PublicCompany {
	out := make([]*PublicCompany, len(s.tokens))
	copy(out, s.tokens)
	return out
}

func (s *StockSpace) tokenIndex(c *PublicCompany) int {
	for i, t := range s.tokens {
		if t == c {
			return i
		}
	}
	return -1
}

// StockMarket is the 2-D price grid. Row 0 is the top (highest prices when
// moving down on withhold/sale); a zero price marks a hole in the grid.
type StockMarket struct {
	grid [][]*StockSpace
}

// NewStockMarket builds the grid from a price matrix. Zero entries are
// unusable spaces.
func NewStockMarket(prices [][]int) *StockMarket {
	m := &StockMarket{}
	for r, row := range prices {
		spaces := make([]*StockSpace, len(row))
		for c, price := range row {
			if price > 0 {
				spaces[c] = &StockSpace{Row: r, Col: c, Price: price}
			}
		}
		m.grid = append(m.grid, spaces)
	}
	return m
}

// SpaceAt returns the space at the given coordinate, nil when off grid or a
// hole.
func (m *StockMarket) SpaceAt(row, col int) *StockSpace {
	if row < 0 || row >= len(m.grid) {
		return nil
	}
	if col < 0 || col >= len(m.grid[row]) {
		return nil
	}
	return m.grid[row][col]
}

// Rows returns the number of grid rows.
func (m *StockMarket) Rows() int { return len(m.grid) }

// StartCompany places a company's price token on its par space.
func (m *StockMarket) StartCompany(stack *MoveStack, c *PublicCompany, row, col int) error {
	space := m.SpaceAt(row, col)
	if space == nil {
		return fmt.Errorf("%w: no stock space at row %d col %d", ErrNotFound, row, col)
	}
	if c.space != nil {
		return fmt.Errorf("%s already on the market at %s", c.Symbol, c.space.Coord())
	}
	if err := stack.Record(&tokenMove{company: c, from: nil, to: space}); err != nil {
		return err
	}
	return stack.Record(newIntMove("par price of "+c.Symbol, &c.parPrice, space.Price))
}

// MoveDown relocates the token one row down per share sold (or withheld
// dividend). The token stops at the bottom of its column.
func (m *StockMarket) MoveDown(stack *MoveStack, c *PublicCompany, rows int) error {
	for i := 0; i < rows; i++ {
		cur := c.space
		if cur == nil {
			return fmt.Errorf("%w: %s has no price token", ErrNotFound, c.Symbol)
		}
		next := m.SpaceAt(cur.Row+1, cur.Col)
		if next == nil {
			return nil
		}
		if err := stack.Record(&tokenMove{company: c, from: cur, to: next}); err != nil {
			return err
		}
	}
	return nil
}

// MoveUp relocates the token one column right after a full payout. The token
// stops at the right edge of its row.
func (m *StockMarket) MoveUp(stack *MoveStack, c *PublicCompany) error {
	cur := c.space
	if cur == nil {
		return fmt.Errorf("%w: %s has no price token", ErrNotFound, c.Symbol)
	}
	next := m.SpaceAt(cur.Row, cur.Col+1)
	if next == nil {
		return nil
	}
	return stack.Record(&tokenMove{company: c, from: cur, to: next})
}
