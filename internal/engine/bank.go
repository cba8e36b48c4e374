package engine

// Bank is the shared pool of cash and certificates. It owns the IPO (unsold
// shares and trains), the open-market pool (shares sold back by players) and
// the scrap heap for rusted trains. The bank may go negative; when it does it
// is permanently broken and the game heads to final scoring.
type Bank struct {
	Account   *Account
	IPO       *Portfolio
	Pool      *Portfolio
	ScrapHeap *Portfolio

	broken     bool
	justBroken bool
}

// NewBank creates a bank with empty portfolios. The bank watches its own
// account: the broken transition is a one-way latch taken the moment cash
// reaches zero or below.
func NewBank() *Bank {
	b := &Bank{
		Account:   NewAccount("Bank", true),
		IPO:       NewPortfolio("IPO"),
		Pool:      NewPortfolio("Pool"),
		ScrapHeap: NewPortfolio("Scrap Heap"),
	}
	b.Account.Subscribe(func() {
		if !b.broken && b.Account.Cash() <= 0 {
			b.broken = true
			b.justBroken = true
		}
	})
	return b
}

// Broken reports whether the bank has run out of cash. One-way: once broken,
// always broken, even if cash later flows back in.
func (b *Bank) Broken() bool { return b.broken }

// JustBroken reports the broken transition exactly once. The first call after
// the bank breaks returns true and consumes the flag; later calls return
// false. The round machine uses this to trigger game-end processing a single
// time.
func (b *Bank) JustBroken() bool {
	if b.justBroken {
		b.justBroken = false
		return true
	}
	return false
}
