package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToUndo is returned by Undo when no closed move set exists.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrCorrupt indicates a move could not be reverted. State is no longer
	// trustworthy and the game must be abandoned or rebuilt from its action log.
	ErrCorrupt = errors.New("engine state corrupt")
	// ErrNotFound indicates a referenced entity does not exist. This is an
	// integration error, not a rules violation.
	ErrNotFound = errors.New("not found")
)

// Move is one atomic, reversible state mutation. A Move is created at the
// moment the mutation happens and is never modified afterwards; it is only
// reverted or discarded.
type Move interface {
	Apply() error
	Revert() error
	String() string
}

// cashMove moves an amount between two accounts. Either side may be nil,
// which models cash entering or leaving play (setup, subsidies).
type cashMove struct {
	from, to *Account
	amount   int
}

func (m *cashMove) Apply() error {
	if m.from != nil {
		m.from.set(m.from.cash - m.amount)
	}
	if m.to != nil {
		m.to.set(m.to.cash + m.amount)
	}
	return nil
}

func (m *cashMove) Revert() error {
	if m.to != nil {
		m.to.set(m.to.cash - m.amount)
	}
	if m.from != nil {
		m.from.set(m.from.cash + m.amount)
	}
	return nil
}

func (m *cashMove) String() string {
	return fmt.Sprintf("cash %d: %s -> %s", m.amount, accountName(m.from), accountName(m.to))
}

func accountName(a *Account) string {
	if a == nil {
		return "out of play"
	}
	return a.name
}

// certMove transfers a certificate between portfolios. The source index is
// captured on Apply so Revert restores the exact insertion order.
type certMove struct {
	cert    *Certificate
	from    *Portfolio
	to      *Portfolio
	fromIdx int
}

func (m *certMove) Apply() error {
	idx := m.from.certIndex(m.cert)
	if idx < 0 {
		return fmt.Errorf("%w: certificate of %s not in %s", ErrNotFound, m.cert.Company.Symbol, m.from.name)
	}
	m.fromIdx = idx
	m.from.certs = append(m.from.certs[:idx], m.from.certs[idx+1:]...)
	m.to.certs = append(m.to.certs, m.cert)
	m.cert.owner = m.to
	return nil
}

func (m *certMove) Revert() error {
	idx := m.to.certIndex(m.cert)
	if idx < 0 {
		return fmt.Errorf("%w: certificate of %s vanished from %s", ErrCorrupt, m.cert.Company.Symbol, m.to.name)
	}
	m.to.certs = append(m.to.certs[:idx], m.to.certs[idx+1:]...)
	m.from.certs = append(m.from.certs, nil)
	copy(m.from.certs[m.fromIdx+1:], m.from.certs[m.fromIdx:])
	m.from.certs[m.fromIdx] = m.cert
	m.cert.owner = m.from
	return nil
}

func (m *certMove) String() string {
	return fmt.Sprintf("cert %s %d%%: %s -> %s", m.cert.Company.Symbol, m.cert.Percent(), m.from.name, m.to.name)
}

// trainMove transfers a train between portfolios.
type trainMove struct {
	train   *Train
	from    *Portfolio
	to      *Portfolio
	fromIdx int
}

func (m *trainMove) Apply() error {
	idx := m.from.trainIndex(m.train)
	if idx < 0 {
		return fmt.Errorf("%w: train %s not in %s", ErrNotFound, m.train.Name, m.from.name)
	}
	m.fromIdx = idx
	m.from.trains = append(m.from.trains[:idx], m.from.trains[idx+1:]...)
	m.to.trains = append(m.to.trains, m.train)
	return nil
}

func (m *trainMove) Revert() error {
	idx := m.to.trainIndex(m.train)
	if idx < 0 {
		return fmt.Errorf("%w: train %s vanished from %s", ErrCorrupt, m.train.Name, m.to.name)
	}
	m.to.trains = append(m.to.trains[:idx], m.to.trains[idx+1:]...)
	m.from.trains = append(m.from.trains, nil)
	copy(m.from.trains[m.fromIdx+1:], m.from.trains[m.fromIdx:])
	m.from.trains[m.fromIdx] = m.train
	return nil
}

func (m *trainMove) String() string {
	return fmt.Sprintf("train %s: %s -> %s", m.train.Name, m.from.name, m.to.name)
}

// privateMove transfers a private company between portfolios.
type privateMove struct {
	private *PrivateCompany
	from    *Portfolio
	to      *Portfolio
	fromIdx int
}

func (m *privateMove) Apply() error {
	idx := m.from.privateIndex(m.private)
	if idx < 0 {
		return fmt.Errorf("%w: private %s not in %s", ErrNotFound, m.private.Name, m.from.name)
	}
	m.fromIdx = idx
	m.from.privates = append(m.from.privates[:idx], m.from.privates[idx+1:]...)
	m.to.privates = append(m.to.privates, m.private)
	return nil
}

func (m *privateMove) Revert() error {
	idx := m.to.privateIndex(m.private)
	if idx < 0 {
		return fmt.Errorf("%w: private %s vanished from %s", ErrCorrupt, m.private.Name, m.to.name)
	}
	m.to.privates = append(m.to.privates[:idx], m.to.privates[idx+1:]...)
	m.from.privates = append(m.from.privates, nil)
	copy(m.from.privates[m.fromIdx+1:], m.from.privates[m.fromIdx:])
	m.from.privates[m.fromIdx] = m.private
	return nil
}

func (m *privateMove) String() string {
	return fmt.Sprintf("private %s: %s -> %s", m.private.Name, m.from.name, m.to.name)
}

// intMove records an old/new value pair for an integer field.
type intMove struct {
	desc     string
	target   *int
	old, new int
}

func newIntMove(desc string, target *int, value int) *intMove {
	return &intMove{desc: desc, target: target, old: *target, new: value}
}

func (m *intMove) Apply() error  { *m.target = m.new; return nil }
func (m *intMove) Revert() error { *m.target = m.old; return nil }
func (m *intMove) String() string {
	return fmt.Sprintf("%s: %d -> %d", m.desc, m.old, m.new)
}

// boolMove records an old/new value pair for a boolean field.
type boolMove struct {
	desc     string
	target   *bool
	old, new bool
}

func newBoolMove(desc string, target *bool, value bool) *boolMove {
	return &boolMove{desc: desc, target: target, old: *target, new: value}
}

func (m *boolMove) Apply() error  { *m.target = m.new; return nil }
func (m *boolMove) Revert() error { *m.target = m.old; return nil }
func (m *boolMove) String() string {
	return fmt.Sprintf("%s: %v -> %v", m.desc, m.old, m.new)
}

// presidentMove changes the president of a company.
type presidentMove struct {
	company  *PublicCompany
	old, new *Player
}

func (m *presidentMove) Apply() error  { m.company.president = m.new; return nil }
func (m *presidentMove) Revert() error { m.company.president = m.old; return nil }
func (m *presidentMove) String() string {
	return fmt.Sprintf("president %s: %s -> %s", m.company.Symbol, playerName(m.old), playerName(m.new))
}

func playerName(p *Player) string {
	if p == nil {
		return "nobody"
	}
	return p.Name
}

// tokenMove relocates a company's price token between stock spaces. Either
// space may be nil (entering the market, leaving it).
type tokenMove struct {
	company *PublicCompany
	from    *StockSpace
	to      *StockSpace
	fromIdx int
}

func (m *tokenMove) Apply() error {
	if m.from != nil {
		idx := m.from.tokenIndex(m.company)
		if idx < 0 {
			return fmt.Errorf("%w: price token of %s not on %s", ErrNotFound, m.company.Symbol, m.from.Coord())
		}
		m.fromIdx = idx
		m.from.tokens = append(m.from.tokens[:idx], m.from.tokens[idx+1:]...)
	}
	if m.to != nil {
		m.to.tokens = append(m.to.tokens, m.company)
	}
	m.company.space = m.to
	return nil
}

func (m *tokenMove) Revert() error {
	if m.to != nil {
		idx := m.to.tokenIndex(m.company)
		if idx < 0 {
			return fmt.Errorf("%w: price token of %s vanished from %s", ErrCorrupt, m.company.Symbol, m.to.Coord())
		}
		m.to.tokens = append(m.to.tokens[:idx], m.to.tokens[idx+1:]...)
	}
	if m.from != nil {
		m.from.tokens = append(m.from.tokens, nil)
		copy(m.from.tokens[m.fromIdx+1:], m.from.tokens[m.fromIdx:])
		m.from.tokens[m.fromIdx] = m.company
	}
	m.company.space = m.from
	return nil
}

func (m *tokenMove) String() string {
	return fmt.Sprintf("price token %s: %s -> %s", m.company.Symbol, spaceCoord(m.from), spaceCoord(m.to))
}

func spaceCoord(s *StockSpace) string {
	if s == nil {
		return "off market"
	}
	return s.Coord()
}
