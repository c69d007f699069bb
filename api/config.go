package api

import (
	"crypto/ed25519"
	"time"
)

type ServerConfig struct {
	// Operator is the address allowed to create, remove, and settle
	// auctions. Settlement proceeds are pushed to the caller's address.
	Operator string

	Auth    AuthConfig
	DB      DBConfig
	Auction AuctionConfig
}

type AuthConfig struct {
	Issuer     string
	PrivateKey ed25519.PrivateKey
	TokenTTL   time.Duration
}

// DBConfig describes the optional PostgreSQL backend. With Host empty the
// server runs on the in-memory account book and skips the event journal.
type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

func (c DBConfig) Enabled() bool { return c.Host != "" }

type AuctionConfig struct {
	// MinBidIncrement overrides the default increment when non-zero.
	MinBidIncrement uint64
	// AssetDecimals scales the default increment to one whole asset unit.
	AssetDecimals uint8
}
