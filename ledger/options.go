package ledger

import (
	"log/slog"
	"time"
)

// Option customizes a Ledger at construction.
type Option func(*Ledger)

// WithSink registers the sink that receives every committed observation.
func WithSink(sink Sink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithMinBidIncrement sets the initial minimum bid increment.
func WithMinBidIncrement(value uint64) Option {
	return func(l *Ledger) { l.minIncrement = value }
}

// WithAssetMetadata scales the default minimum bid increment to one whole
// unit of the escrowed asset. A later WithMinBidIncrement, or the
// UpdateMinBidIncrement operation, overrides it.
func WithAssetMetadata(meta AssetMetadata) Option {
	return func(l *Ledger) {
		if meta != nil {
			l.minIncrement = wholeUnit(meta.Decimals())
		}
	}
}
