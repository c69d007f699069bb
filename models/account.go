package models

import "gorm.io/gorm"

// Account holds one settlement-currency balance, keyed by the address the
// ledger uses to identify callers. The escrow itself is the row with
// Address == funds.EscrowAddress.
type Account struct {
	gorm.Model

	Address string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Balance uint64 `gorm:"type:bigint;not null;default:0"`
}
