package api

import (
	"errors"
	"net/http"

	"auctiond/ledger"
)

// statusForError maps ledger sentinel errors to HTTP statuses. Unrecognized
// errors are internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidAuctionTiming):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoActiveAuction):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAuctionNotStarted):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAuctionEnded):
		return http.StatusGone
	case errors.Is(err, ledger.ErrBidTooLow):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAuctionStillActive):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrRefundFailed):
		// The standing bidder's refund target refused the transfer; the
		// auction is effectively locked until that clears.
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
