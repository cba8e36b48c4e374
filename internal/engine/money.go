package engine

import (
	"fmt"
)

// Account holds the cash of one party (bank, player, company treasury).
// Cash is always an integer and is mutated only through recorded moves, so
// every change is undoable. Listeners are notified on every mutation.
type Account struct {
	name          string
	cash          int
	blocked       int
	allowNegative bool
	listeners     []func()
}

// NewAccount creates an account with a starting balance. The balance itself
// is set outside the move ledger; callers fund accounts via TransferCash
// during setup so the opening transfers are part of the record.
func NewAccount(name string, allowNegative bool) *Account {
	return &Account{name: name, allowNegative: allowNegative}
}

// Name returns the account owner's display name.
func (a *Account) Name() string { return a.name }

// Cash returns the current balance.
func (a *Account) Cash() int { return a.cash }

// Blocked returns cash reserved for standing bids.
func (a *Account) Blocked() int { return a.blocked }

// FreeCash is the balance minus blocked cash, the amount actually spendable.
func (a *Account) FreeCash() int { return a.cash - a.blocked }

// Subscribe registers a listener invoked after every balance change.
func (a *Account) Subscribe(fn func()) {
	a.listeners = append(a.listeners, fn)
}

func (a *Account) set(v int) {
	a.cash = v
	for _, fn := range a.listeners {
		fn()
	}
}

// TransferCash moves an amount between accounts through the ledger. A nil
// account means cash entering or leaving play. The payer must be able to
// afford the amount unless its account allows a negative balance.
func TransferCash(stack *MoveStack, from, to *Account, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative cash transfer %d", amount)
	}
	if from != nil && !from.allowNegative && from.FreeCash() < amount {
		return fmt.Errorf("%s cannot pay %d, has %d free", from.name, amount, from.FreeCash())
	}
	return stack.Record(&cashMove{from: from, to: to, amount: amount})
}

// BlockCash reserves cash on an account for a standing bid.
func BlockCash(stack *MoveStack, a *Account, amount int) error {
	if a.FreeCash() < amount {
		return fmt.Errorf("%s cannot block %d, has %d free", a.name, amount, a.FreeCash())
	}
	return stack.Record(newIntMove("blocked cash of "+a.name, &a.blocked, a.blocked+amount))
}

// UnblockCash releases previously blocked cash.
func UnblockCash(stack *MoveStack, a *Account, amount int) error {
	if a.blocked < amount {
		return fmt.Errorf("%s cannot unblock %d, only %d blocked", a.name, amount, a.blocked)
	}
	return stack.Record(newIntMove("blocked cash of "+a.name, &a.blocked, a.blocked-amount))
}
