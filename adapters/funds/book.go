// Package funds provides ValueTransfer implementations: an in-memory
// account book for tests and single-node deployments, and a PostgreSQL
// backed store for deployments that persist balances.
package funds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// EscrowAddress is the reserved account holding funds the ledger escrows.
const EscrowAddress = "__escrow__"

var (
	// ErrInsufficientFunds is returned by Pull when the source account
	// cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferRejected is returned by Push when the destination
	// account refuses incoming transfers.
	ErrTransferRejected = errors.New("transfer rejected by recipient")
	// ErrBalanceOverflow is returned when a credit would wrap the
	// destination balance.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Book is a concurrency-safe in-memory account book. Pull moves funds from
// an account into the escrow account; Push moves them back out. Every
// credit is overflow-checked, so a balance can never wrap.
type Book struct {
	mu       sync.RWMutex
	balances map[string]uint64
	rejects  map[string]bool
}

// NewBook creates an empty account book.
func NewBook() *Book {
	return &Book{
		balances: make(map[string]uint64),
		rejects:  make(map[string]bool),
	}
}

// Deposit credits an account, creating it if needed.
func (b *Book) Deposit(address string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount > math.MaxUint64-b.balances[address] {
		return fmt.Errorf("deposit %d to %s: %w", amount, address, ErrBalanceOverflow)
	}
	b.balances[address] += amount
	return nil
}

// Balance returns the current balance of an account.
func (b *Book) Balance(address string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[address]
}

// Escrowed returns the balance currently held in escrow.
func (b *Book) Escrowed() uint64 { return b.Balance(EscrowAddress) }

// SetRejectIncoming makes Push to the given account fail. This models a
// recipient that refuses transfers, the known griefing surface of
// push-based refunds.
func (b *Book) SetRejectIncoming(address string, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejects[address] = reject
}

// Pull moves amount from the given account into escrow.
func (b *Book) Pull(ctx context.Context, from string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return fmt.Errorf("pull %d from %s: %w", amount, from, ErrInsufficientFunds)
	}
	if amount > math.MaxUint64-b.balances[EscrowAddress] {
		return fmt.Errorf("pull %d from %s: %w", amount, from, ErrBalanceOverflow)
	}
	b.balances[from] -= amount
	b.balances[EscrowAddress] += amount
	return nil
}

// Push moves amount out of escrow to the given account.
func (b *Book) Push(ctx context.Context, to string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejects[to] {
		return fmt.Errorf("push %d to %s: %w", amount, to, ErrTransferRejected)
	}
	if b.balances[EscrowAddress] < amount {
		return fmt.Errorf("push %d to %s: %w", amount, to, ErrInsufficientFunds)
	}
	if amount > math.MaxUint64-b.balances[to] {
		return fmt.Errorf("push %d to %s: %w", amount, to, ErrBalanceOverflow)
	}
	b.balances[EscrowAddress] -= amount
	b.balances[to] += amount
	return nil
}
