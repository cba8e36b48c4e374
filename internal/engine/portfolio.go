package engine

import (
	"fmt"
)

// Certificate is a tradeable share of a public company. The president
// certificate counts two shares. A certificate belongs to exactly one
// portfolio at a time and is never destroyed.
type Certificate struct {
	Company   *PublicCompany
	Shares    int
	President bool
	owner     *Portfolio
}

// Percent returns the share percentage this certificate represents.
func (c *Certificate) Percent() int {
	return c.Shares * c.Company.ShareUnit()
}

// Owner returns the portfolio currently holding the certificate.
func (c *Certificate) Owner() *Portfolio { return c.owner }

// Portfolio is an ordered container of certificates, private companies and
// trains owned by one party. Portfolios are created once at game setup and
// persist for the whole game; undo relies on them never being destroyed.
// Insertion order is preserved because it is semantically relevant (price
// token stacking, tie-breaks).
type Portfolio struct {
	name     string
	certs    []*Certificate
	privates []*PrivateCompany
	trains   []*Train
}

// NewPortfolio creates an empty portfolio tagged with its owner's name.
func NewPortfolio(name string) *Portfolio {
	return &Portfolio{name: name}
}

// Name returns the owner tag.
func (p *Portfolio) Name() string { return p.name }

// Certificates returns the held certificates in insertion order. The slice
// is a copy; the portfolio is only mutated through moves.
func (p *Portfolio) Certificates() []*Certificate {
	out := make([]*Certificate, len(p.certs))
	copy(out, p.certs)
	return out
}

// Privates returns the held private companies in insertion order.
func (p *Portfolio) Privates() []*PrivateCompany {
	out := make([]*PrivateCompany, len(p.privates))
	copy(out, p.privates)
	return out
}

// Trains returns the held trains in insertion order.
func (p *Portfolio) Trains() []*Train {
	out := make([]*Train, len(p.trains))
	copy(out, p.trains)
	return out
}

// SharesOf returns the number of shares of a company held here.
func (p *Portfolio) SharesOf(c *PublicCompany) int {
	n := 0
	for _, cert := range p.certs {
		if cert.Company == c {
			n += cert.Shares
		}
	}
	return n
}

// CertCount returns the number of certificates held (for certificate limits).
func (p *Portfolio) CertCount() int { return len(p.certs) }

// FindCertificate returns the first certificate of the company matching the
// president flag, or nil.
func (p *Portfolio) FindCertificate(c *PublicCompany, president bool) *Certificate {
	for _, cert := range p.certs {
		if cert.Company == c && cert.President == president {
			return cert
		}
	}
	return nil
}

// FindTrain returns the first unrusted train with the given name, or nil.
func (p *Portfolio) FindTrain(name string) *Train {
	for _, t := range p.trains {
		if t.Name == name && !t.rusted {
			return t
		}
	}
	return nil
}

// FindPrivate returns the held private company with the given name, or nil.
func (p *Portfolio) FindPrivate(name string) *PrivateCompany {
	for _, pc := range p.privates {
		if pc.Name == name {
			return pc
		}
	}
	return nil
}

func (p *Portfolio) certIndex(c *Certificate) int {
	for i, cert := range p.certs {
		if cert == c {
			return i
		}
	}
	return -1
}

func (p *Portfolio) trainIndex(t *Train) int {
	for i, tr := range p.trains {
		if tr == t {
			return i
		}
	}
	return -1
}

func (p *Portfolio) privateIndex(pc *PrivateCompany) int {
	for i, pv := range p.privates {
		if pv == pc {
			return i
		}
	}
	return -1
}

// TransferCertificate moves a certificate between portfolios through the
// ledger. The caller is responsible for running a presidency check afterwards
// (Game.CheckPresidency) once all certificates of the action have moved.
func TransferCertificate(stack *MoveStack, cert *Certificate, from, to *Portfolio) error {
	if cert == nil {
		return fmt.Errorf("%w: nil certificate", ErrNotFound)
	}
	return stack.Record(&certMove{cert: cert, from: from, to: to})
}

// TransferTrain moves a train between portfolios through the ledger.
func TransferTrain(stack *MoveStack, t *Train, from, to *Portfolio) error {
	if t == nil {
		return fmt.Errorf("%w: nil train", ErrNotFound)
	}
	return stack.Record(&trainMove{train: t, from: from, to: to})
}

// TransferPrivate moves a private company between portfolios through the
// ledger.
func TransferPrivate(stack *MoveStack, pc *PrivateCompany, from, to *Portfolio) error {
	if pc == nil {
		return fmt.Errorf("%w: nil private company", ErrNotFound)
	}
	return stack.Record(&privateMove{private: pc, from: from, to: to})
}
