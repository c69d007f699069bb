package funds

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctiond/models"
)

// Store is a PostgreSQL-backed account book. Each transfer runs as one
// database transaction with the touched rows locked, so concurrent ledger
// instances sharing a database cannot double-spend an account.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm connection and migrates the accounts table.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		return nil, fmt.Errorf("migrate accounts table: %w", err)
	}
	return &Store{db: db}, nil
}

// Deposit credits an account, creating the row if needed.
func (s *Store) Deposit(ctx context.Context, address string, amount uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return credit(tx, address, amount)
	})
}

// Balance returns the current balance of an account, 0 if absent.
func (s *Store) Balance(ctx context.Context, address string) (uint64, error) {
	var account models.Account
	result := s.db.WithContext(ctx).Where("address = ?", address).First(&account)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("load account %s: %w", address, result.Error)
	}
	return account.Balance, nil
}

// Pull moves amount from the given account into escrow.
func (s *Store) Pull(ctx context.Context, from string, amount uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, from, amount); err != nil {
			return err
		}
		return credit(tx, EscrowAddress, amount)
	})
}

// Push moves amount out of escrow to the given account.
func (s *Store) Push(ctx context.Context, to string, amount uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, EscrowAddress, amount); err != nil {
			return err
		}
		return credit(tx, to, amount)
	})
}

func debit(tx *gorm.DB, address string, amount uint64) error {
	var account models.Account
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("address = ?", address).First(&account)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("debit %d from %s: %w", amount, address, ErrInsufficientFunds)
	}
	if result.Error != nil {
		return fmt.Errorf("lock account %s: %w", address, result.Error)
	}
	if account.Balance < amount {
		return fmt.Errorf("debit %d from %s: %w", amount, address, ErrInsufficientFunds)
	}
	account.Balance -= amount
	if result := tx.Save(&account); result.Error != nil {
		return fmt.Errorf("update account %s: %w", address, result.Error)
	}
	return nil
}

func credit(tx *gorm.DB, address string, amount uint64) error {
	var account models.Account
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("address = ?", address).First(&account)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		account = models.Account{Address: address, Balance: amount}
		if result := tx.Create(&account); result.Error != nil {
			return fmt.Errorf("create account %s: %w", address, result.Error)
		}
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("lock account %s: %w", address, result.Error)
	}
	if amount > math.MaxUint64-account.Balance {
		return fmt.Errorf("credit %d to %s: %w", amount, address, ErrBalanceOverflow)
	}
	account.Balance += amount
	if result := tx.Save(&account); result.Error != nil {
		return fmt.Errorf("update account %s: %w", address, result.Error)
	}
	return nil
}
