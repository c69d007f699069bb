package funds_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctiond/adapters/funds"
)

func TestBook_PullAndPush(t *testing.T) {
	book := funds.NewBook()
	ctx := context.Background()

	book.Deposit("alice", 300)
	require.NoError(t, book.Pull(ctx, "alice", 200))
	assert.Equal(t, uint64(100), book.Balance("alice"))
	assert.Equal(t, uint64(200), book.Escrowed())

	require.NoError(t, book.Push(ctx, "bob", 150))
	assert.Equal(t, uint64(150), book.Balance("bob"))
	assert.Equal(t, uint64(50), book.Escrowed())
}

func TestBook_InsufficientFunds(t *testing.T) {
	book := funds.NewBook()
	ctx := context.Background()

	err := book.Pull(ctx, "alice", 1)
	require.ErrorIs(t, err, funds.ErrInsufficientFunds)

	err = book.Push(ctx, "alice", 1)
	require.ErrorIs(t, err, funds.ErrInsufficientFunds)
}

func TestBook_OverflowingCreditRejected(t *testing.T) {
	book := funds.NewBook()
	ctx := context.Background()

	require.NoError(t, book.Deposit("alice", math.MaxUint64))
	err := book.Deposit("alice", 1)
	require.ErrorIs(t, err, funds.ErrBalanceOverflow)
	assert.Equal(t, uint64(math.MaxUint64), book.Balance("alice"))

	// A pull that would wrap the escrow balance is refused and moves
	// nothing.
	require.NoError(t, book.Pull(ctx, "alice", math.MaxUint64))
	require.NoError(t, book.Deposit("bob", 1))
	err = book.Pull(ctx, "bob", 1)
	require.ErrorIs(t, err, funds.ErrBalanceOverflow)
	assert.Equal(t, uint64(1), book.Balance("bob"))
	assert.Equal(t, uint64(math.MaxUint64), book.Escrowed())

	// Same for a push that would wrap the recipient.
	require.NoError(t, book.Push(ctx, "bob", math.MaxUint64-1))
	err = book.Push(ctx, "bob", 1)
	require.ErrorIs(t, err, funds.ErrBalanceOverflow)
	assert.Equal(t, uint64(1), book.Escrowed())
}

func TestBook_RejectIncoming(t *testing.T) {
	book := funds.NewBook()
	ctx := context.Background()

	book.Deposit("alice", 100)
	require.NoError(t, book.Pull(ctx, "alice", 100))

	book.SetRejectIncoming("alice", true)
	err := book.Push(ctx, "alice", 100)
	require.ErrorIs(t, err, funds.ErrTransferRejected)
	assert.Equal(t, uint64(100), book.Escrowed(), "rejected push must not move funds")

	book.SetRejectIncoming("alice", false)
	require.NoError(t, book.Push(ctx, "alice", 100))
	assert.Equal(t, uint64(100), book.Balance("alice"))
}
