package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundedAccount(t *testing.T, s *MoveStack, name string, cash int) *Account {
	t.Helper()
	a := NewAccount(name, false)
	require.NoError(t, s.Record(&cashMove{from: nil, to: a, amount: cash}))
	return a
}

func TestTransferCashMovesMoney(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 100)
	bob := fundedAccount(t, s, "Bob", 50)

	require.NoError(t, TransferCash(s, alice, bob, 30))
	assert.Equal(t, 70, alice.Cash())
	assert.Equal(t, 80, bob.Cash())
}

func TestTransferCashRejectsUnaffordable(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 10)
	bob := fundedAccount(t, s, "Bob", 0)
	depth := s.Depth()

	err := TransferCash(s, alice, bob, 11)
	require.Error(t, err)
	assert.Equal(t, 10, alice.Cash())
	assert.Equal(t, 0, bob.Cash())
	assert.Equal(t, depth, s.Depth(), "a failed transfer leaves no record")
}

func TestTransferCashRejectsNegativeAmount(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 10)
	require.Error(t, TransferCash(s, alice, nil, -5))
}

func TestNegativeBalanceAccountMayOverdraw(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	bank := NewAccount("Bank", true)
	require.NoError(t, s.Record(&cashMove{from: nil, to: bank, amount: 100}))
	sink := NewAccount("sink", false)

	require.NoError(t, TransferCash(s, bank, sink, 250))
	assert.Equal(t, -150, bank.Cash())
}

func TestBlockedCashReducesSpendable(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 100)

	require.NoError(t, BlockCash(s, alice, 60))
	assert.Equal(t, 100, alice.Cash())
	assert.Equal(t, 40, alice.FreeCash())

	// the blocked portion is not spendable
	require.Error(t, TransferCash(s, alice, nil, 50))

	require.NoError(t, UnblockCash(s, alice, 60))
	assert.Equal(t, 100, alice.FreeCash())
}

func TestBlockCashBounds(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 30)

	require.Error(t, BlockCash(s, alice, 31))
	require.Error(t, UnblockCash(s, alice, 1))
}

func TestCashTransferUndo(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := fundedAccount(t, s, "Alice", 100)
	bob := fundedAccount(t, s, "Bob", 0)
	s.CloseSet()

	s.StartSet("payment")
	require.NoError(t, TransferCash(s, alice, bob, 25))
	s.CloseSet()

	require.NoError(t, s.Undo())
	assert.Equal(t, 100, alice.Cash())
	assert.Equal(t, 0, bob.Cash())
}

func TestAccountListenersFireOnEveryChange(t *testing.T) {
	s := NewMoveStack(zerolog.Nop())
	alice := NewAccount("Alice", false)
	calls := 0
	alice.Subscribe(func() { calls++ })

	require.NoError(t, s.Record(&cashMove{from: nil, to: alice, amount: 10}))
	require.NoError(t, TransferCash(s, alice, nil, 5))
	assert.Equal(t, 2, calls)
}
