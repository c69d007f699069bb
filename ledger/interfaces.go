package ledger

import "context"

// ValueTransfer moves the auctioned asset's settlement currency between the
// ledger's escrow and external accounts. Implementations decide what an
// account address means (an in-memory book, a database row, a token contract).
type ValueTransfer interface {
	// Pull moves amount from the given account into escrow.
	Pull(ctx context.Context, from string, amount uint64) error
	// Push moves amount out of escrow to the given account.
	Push(ctx context.Context, to string, amount uint64) error
}

// AccessControl answers whether a caller may invoke privileged operations.
// It is deliberately a single predicate so alternate policies (single owner,
// allow list, multisig) can be swapped without touching auction logic.
type AccessControl interface {
	IsAuthorized(caller string) bool
}

// AssetMetadata describes the escrowed asset. It is consulted once, at
// construction, to scale the default minimum bid increment.
type AssetMetadata interface {
	Decimals() uint8
}
