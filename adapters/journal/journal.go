// Package journal persists ledger observations as append-only rows, so an
// external indexer can rebuild auction history from the database alone.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smallnest/chanx"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/gorm"

	"auctiond/ledger"
	"auctiond/models"
)

// Writer drains published events into the auction_events table. Publish
// never blocks, so it is safe to call from inside the ledger's critical
// section; persistence happens on a background worker.
type Writer struct {
	db     *gorm.DB
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  *chanx.UnboundedChan[ledger.Event]

	mu     sync.Mutex
	closed bool
}

// NewWriter migrates the journal table and prepares a writer ready to Start.
func NewWriter(db *gorm.DB, logger *slog.Logger) (*Writer, error) {
	if err := db.AutoMigrate(&models.AuctionEvent{}); err != nil {
		return nil, fmt.Errorf("migrate auction_events table: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		db:     db,
		logger: logger.With(slog.String("caller", "JournalWriter")),
		ctx:    ctx,
		cancel: cancel,
		queue:  chanx.NewUnboundedChan[ledger.Event](ctx, 100),
	}, nil
}

// Start launches the persistence worker.
func (w *Writer) Start() {
	w.logger.Info("starting journal writer")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.logger.Info("journal writer stopped")
		for {
			select {
			case <-w.ctx.Done():
				return
			case ev, ok := <-w.queue.Out:
				if !ok {
					return
				}
				if err := w.persist(ev); err != nil {
					w.logger.Error("fail to persist event",
						slog.String("type", string(ev.Type)),
						slog.Uint64("auctionID", ev.AuctionID),
						slog.Any("error", err))
				}
			}
		}
	}()
}

// Publish enqueues one event. Implements ledger.Sink.
func (w *Writer) Publish(ev ledger.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.queue.In <- ev:
	case <-w.ctx.Done():
	}
}

// Close stops the worker. Events still queued are dropped; the journal is a
// best-effort mirror, the ledger itself stays authoritative.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

func (w *Writer) persist(ev ledger.Event) error {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	row := models.AuctionEvent{
		Type:      string(ev.Type),
		AuctionID: ev.AuctionID,
		Actor:     ev.Actor,
		Amount:    ev.Amount,
		EmittedAt: ev.At,
		Payload:   payload,
	}
	if result := w.db.Create(&row); result.Error != nil {
		return fmt.Errorf("insert journal row: %w", result.Error)
	}
	return nil
}
