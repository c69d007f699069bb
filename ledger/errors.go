package ledger

import "errors"

// State and validation errors. All are matchable with errors.Is; operations
// that return them leave the ledger unchanged.
var (
	ErrNotAuthorized        = errors.New("caller is not authorized")
	ErrInvalidAuctionTiming = errors.New("invalid auction timing")
	ErrNoActiveAuction      = errors.New("no such auction")
	ErrAuctionNotStarted    = errors.New("auction has not started")
	ErrAuctionEnded         = errors.New("auction has ended")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrAuctionStillActive   = errors.New("auction is still active")
)

// Integrity errors. These wrap the underlying transfer failure; the
// triggering operation rolls back every effect before returning them.
var (
	ErrTransferFailed = errors.New("value transfer failed")
	ErrRefundFailed   = errors.New("refund transfer failed")
)
