package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Auction is a read-only snapshot of one auction record.
type Auction struct {
	ID            uint64    `json:"id"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	StartingPrice uint64    `json:"startingPrice"`
	HighestBid    uint64    `json:"highestBid"`
	HighestBidder string    `json:"highestBidder,omitempty"`
	Withdrawn     bool      `json:"withdrawn"`
}

// HasBidder reports whether any bid has been accepted yet.
func (a Auction) HasBidder() bool { return a.HighestBidder != "" }

// record is the stored form of an auction. A zero record with exists=false
// is a tombstone: either never created or explicitly removed.
type record struct {
	exists        bool
	startTime     time.Time
	endTime       time.Time
	startingPrice uint64
	highestBid    uint64
	highestBidder string
	withdrawn     bool
}

// Ledger runs a sequence of time-boxed English auctions over a single asset.
// It escrows the current highest bid, refunds outbid participants immediately,
// and settles concluded auctions to the operator on demand.
//
// Every mutating operation executes under whole-operation mutual exclusion:
// it either commits all of its effects and observations or none of them.
type Ledger struct {
	mu sync.Mutex

	transfer ValueTransfer
	access   AccessControl
	sink     Sink
	logger   *slog.Logger
	now      func() time.Time

	// records[i] holds auction id i+1. Ids are assigned sequentially
	// starting at 1 and never reused; id 0 is the "no auction" sentinel.
	records      []record
	minIncrement uint64
}

// New builds a Ledger on top of the given transfer and access capabilities.
func New(transfer ValueTransfer, access AccessControl, opts ...Option) (*Ledger, error) {
	if transfer == nil {
		return nil, errors.New("ledger: nil ValueTransfer")
	}
	if access == nil {
		return nil, errors.New("ledger: nil AccessControl")
	}
	l := &Ledger{
		transfer:     transfer,
		access:       access,
		logger:       slog.Default(),
		now:          time.Now,
		minIncrement: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("caller", "Ledger"))
	return l, nil
}

// CurrentID returns the most recently assigned auction id, 0 if none.
func (l *Ledger) CurrentID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.records))
}

// MinBidIncrement returns the configured minimum bid increment.
func (l *Ledger) MinBidIncrement() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minIncrement
}

// CreateAuction registers a new auction and returns its id. The window is
// half-open: bids are accepted at start and rejected at end. The caller must
// be authorized, start must precede end, and start must not be in the past.
func (l *Ledger) CreateAuction(ctx context.Context, caller string, start, end time.Time, startingPrice uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.IsAuthorized(caller) {
		return 0, ErrNotAuthorized
	}
	now := l.now()
	if !start.Before(end) {
		return 0, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidAuctionTiming, start, end)
	}
	if start.Before(now) {
		return 0, fmt.Errorf("%w: start %s is in the past", ErrInvalidAuctionTiming, start)
	}

	l.records = append(l.records, record{
		exists:        true,
		startTime:     start,
		endTime:       end,
		startingPrice: startingPrice,
		highestBid:    startingPrice,
	})
	id := uint64(len(l.records))

	l.logger.Info("auction created",
		slog.Uint64("auctionID", id),
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Uint64("startingPrice", startingPrice))
	l.publish(Event{Type: EventAuctionCreated, AuctionID: id, Actor: caller, Amount: startingPrice, At: now})
	return id, nil
}

// RemoveAuction erases an auction record entirely. Its id is never reused.
//
// If the record still escrows a live highest bid, that bidder is refunded
// before the record is erased; a failed refund aborts the removal. This is a
// deliberate departure from the historical behavior, which dropped the record
// without refunding and left the escrowed funds unreachable.
func (l *Ledger) RemoveAuction(ctx context.Context, caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.IsAuthorized(caller) {
		return ErrNotAuthorized
	}
	rec, ok := l.get(id)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNoActiveAuction, id)
	}

	now := l.now()
	if rec.highestBidder != "" && !rec.withdrawn {
		if err := l.transfer.Push(ctx, rec.highestBidder, rec.highestBid); err != nil {
			return fmt.Errorf("%w: refund %d to %s: %w", ErrRefundFailed, rec.highestBid, rec.highestBidder, err)
		}
		l.publish(Event{Type: EventBidRefunded, AuctionID: id, Actor: rec.highestBidder, Amount: rec.highestBid, At: now})
	}

	l.records[id-1] = record{}
	l.logger.Info("auction removed", slog.Uint64("auctionID", id))
	l.publish(Event{Type: EventAuctionRemoved, AuctionID: id, Actor: caller, At: now})
	return nil
}

// PlaceBid escrows amount as the new highest bid on the given auction and
// refunds the previous highest bidder in the same operation. The first bid
// must reach the starting price; every later bid must exceed the standing
// bid by strictly more than the minimum increment.
//
// The operation is all-or-nothing: if the refund push fails, the bidder's
// pulled-in funds are returned and the record stays unchanged.
func (l *Ledger) PlaceBid(ctx context.Context, bidder string, id uint64, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.get(id)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNoActiveAuction, id)
	}
	now := l.now()
	if now.Before(rec.startTime) {
		return fmt.Errorf("%w: starts at %s", ErrAuctionNotStarted, rec.startTime)
	}
	if !now.Before(rec.endTime) {
		return fmt.Errorf("%w: ended at %s", ErrAuctionEnded, rec.endTime)
	}
	if rec.highestBidder == "" {
		if amount < rec.startingPrice {
			return fmt.Errorf("%w: %d is below starting price %d", ErrBidTooLow, amount, rec.startingPrice)
		}
	} else if amount <= rec.highestBid || amount-rec.highestBid <= l.minIncrement {
		// Compare the difference, not the sum: highestBid+minIncrement could
		// wrap around uint64 and admit a non-increasing bid.
		return fmt.Errorf("%w: %d does not exceed %d plus increment %d", ErrBidTooLow, amount, rec.highestBid, l.minIncrement)
	}

	if err := l.transfer.Pull(ctx, bidder, amount); err != nil {
		return fmt.Errorf("%w: pull %d from %s: %w", ErrTransferFailed, amount, bidder, err)
	}
	if rec.highestBidder != "" {
		if err := l.transfer.Push(ctx, rec.highestBidder, rec.highestBid); err != nil {
			// The new bid's funds are already held; hand them back before
			// surfacing the failure so escrow stays balanced.
			if cerr := l.transfer.Push(ctx, bidder, amount); cerr != nil {
				err = errors.Join(err, fmt.Errorf("returning pulled funds to %s: %w", bidder, cerr))
			}
			return fmt.Errorf("%w: refund %d to %s: %w", ErrRefundFailed, rec.highestBid, rec.highestBidder, err)
		}
		l.publish(Event{Type: EventBidRefunded, AuctionID: id, Actor: rec.highestBidder, Amount: rec.highestBid, At: now})
	}

	rec.highestBid = amount
	rec.highestBidder = bidder
	l.logger.Info("bid placed",
		slog.Uint64("auctionID", id),
		slog.String("bidder", bidder),
		slog.Uint64("amount", amount))
	l.publish(Event{Type: EventBidPlaced, AuctionID: id, Actor: bidder, Amount: amount, At: now})
	return nil
}

// WithdrawFunds settles the given auctions and pushes the aggregate winning
// amount to the caller in a single transfer. Ids that are absent, have no
// bidder, or are already withdrawn are skipped without error, so overlapping
// batches can be resubmitted safely. A single not-yet-ended auction in the
// batch aborts the whole call; so does a failed settlement transfer, in which
// case no withdrawn mark is applied.
func (l *Ledger) WithdrawFunds(ctx context.Context, caller string, ids []uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.IsAuthorized(caller) {
		return 0, ErrNotAuthorized
	}
	now := l.now()

	var total uint64
	settled := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rec, ok := l.get(id)
		if !ok || rec.highestBidder == "" || rec.withdrawn {
			continue
		}
		if now.Before(rec.endTime) {
			return 0, fmt.Errorf("%w: id %d ends at %s", ErrAuctionStillActive, id, rec.endTime)
		}
		if rec.highestBid > math.MaxUint64-total {
			return 0, fmt.Errorf("%w: settlement total overflows adding id %d", ErrTransferFailed, id)
		}
		total += rec.highestBid
		settled = append(settled, id)
	}
	if len(settled) == 0 {
		return 0, nil
	}

	// Transfer first, mark after: a failed push must leave every
	// withdrawn flag untouched.
	if err := l.transfer.Push(ctx, caller, total); err != nil {
		return 0, fmt.Errorf("%w: push %d to %s: %w", ErrTransferFailed, total, caller, err)
	}
	for _, id := range settled {
		l.records[id-1].withdrawn = true
	}

	l.logger.Info("funds withdrawn",
		slog.Uint64("total", total),
		slog.Int("auctions", len(settled)))
	l.publish(Event{Type: EventFundsWithdrawn, Actor: caller, Amount: total, Settled: settled, At: now})
	return total, nil
}

// UpdateMinBidIncrement replaces the minimum amount by which a new bid must
// exceed the standing one.
func (l *Ledger) UpdateMinBidIncrement(ctx context.Context, caller string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.access.IsAuthorized(caller) {
		return ErrNotAuthorized
	}
	l.minIncrement = value
	l.publish(Event{Type: EventBidIncrementUpdated, Actor: caller, Amount: value, At: l.now()})
	return nil
}

// CurrentAuction returns the auction whose window contains the present
// moment, scanning from the newest id downward. The operator is trusted not
// to create overlapping windows; if it does anyway, the highest id wins.
func (l *Ledger) CurrentAuction() (Auction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id := uint64(len(l.records)); id >= 1; id-- {
		rec := &l.records[id-1]
		if rec.exists && !now.Before(rec.startTime) && now.Before(rec.endTime) {
			return l.snapshot(id), true
		}
	}
	return Auction{}, false
}

// NextAuction returns a future auction, scanning from the newest id downward.
// With several future auctions registered this yields the one with the
// largest id, not the one starting soonest; external schedulers rely on that
// ordering, so it is kept as is.
func (l *Ledger) NextAuction() (Auction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id := uint64(len(l.records)); id >= 1; id-- {
		rec := &l.records[id-1]
		if rec.exists && now.Before(rec.startTime) {
			return l.snapshot(id), true
		}
	}
	return Auction{}, false
}

// PastAuctions returns every concluded auction in ascending id order.
func (l *Ledger) PastAuctions() []Auction {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.collect(func(rec *record) bool {
		return !now.Before(rec.endTime)
	})
}

// UpcomingAuctions returns every not-yet-started auction in ascending id order.
func (l *Ledger) UpcomingAuctions() []Auction {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.collect(func(rec *record) bool {
		return now.Before(rec.startTime)
	})
}

// GetAuction returns a snapshot of the given auction, if it exists.
func (l *Ledger) GetAuction(id uint64) (Auction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.get(id); !ok {
		return Auction{}, false
	}
	return l.snapshot(id), true
}

// collect does a two-pass scan: count the matches, then fill the result.
func (l *Ledger) collect(match func(*record) bool) []Auction {
	count := 0
	for i := range l.records {
		if l.records[i].exists && match(&l.records[i]) {
			count++
		}
	}
	out := make([]Auction, 0, count)
	for i := range l.records {
		if l.records[i].exists && match(&l.records[i]) {
			out = append(out, l.snapshot(uint64(i+1)))
		}
	}
	return out
}

// get returns the live record for id, or nil,false for tombstones and ids
// that were never assigned. Callers must hold l.mu.
func (l *Ledger) get(id uint64) (*record, bool) {
	if id < 1 || id > uint64(len(l.records)) {
		return nil, false
	}
	rec := &l.records[id-1]
	if !rec.exists {
		return nil, false
	}
	return rec, true
}

func (l *Ledger) snapshot(id uint64) Auction {
	rec := &l.records[id-1]
	return Auction{
		ID:            id,
		StartTime:     rec.startTime,
		EndTime:       rec.endTime,
		StartingPrice: rec.startingPrice,
		HighestBid:    rec.highestBid,
		HighestBidder: rec.highestBidder,
		Withdrawn:     rec.withdrawn,
	}
}

func (l *Ledger) publish(ev Event) {
	if l.sink != nil {
		l.sink.Publish(ev)
	}
}

// wholeUnit returns one whole asset unit in base units.
func wholeUnit(decimals uint8) uint64 {
	return uint64(math.Pow10(int(decimals)))
}
