package models

import (
	"time"

	"gorm.io/gorm"
)

// AuctionEvent is one journal row: an append-only record of a committed
// ledger observation. Payload is the msgpack-encoded ledger.Event, kept
// verbatim so an indexer can rebuild history without joining other tables.
type AuctionEvent struct {
	gorm.Model

	Type      string    `gorm:"type:varchar(64);not null;index"`
	AuctionID uint64    `gorm:"type:bigint;index"`
	Actor     string    `gorm:"type:varchar(255)"`
	Amount    uint64    `gorm:"type:bigint"`
	EmittedAt time.Time `gorm:"type:timestamp with time zone;not null"`
	Payload   []byte    `gorm:"type:bytea;not null"`
}
