package ledger

import "time"

// EventType identifies a ledger observation.
type EventType string

const (
	EventAuctionCreated      EventType = "auction_created"
	EventAuctionRemoved      EventType = "auction_removed"
	EventBidPlaced           EventType = "bid_placed"
	EventBidRefunded         EventType = "bid_refunded"
	EventFundsWithdrawn      EventType = "funds_withdrawn"
	EventBidIncrementUpdated EventType = "bid_increment_updated"
)

// Event is an append-only observation of a committed mutation. It carries
// enough data for an external indexer to reconstruct auction history without
// re-querying ledger state.
type Event struct {
	Type      EventType `json:"type" msgpack:"type"`
	AuctionID uint64    `json:"auctionId,omitempty" msgpack:"auctionId,omitempty"`
	Actor     string    `json:"actor,omitempty" msgpack:"actor,omitempty"`
	Amount    uint64    `json:"amount,omitempty" msgpack:"amount,omitempty"`
	// Settled lists the auction ids covered by a funds_withdrawn event.
	Settled []uint64  `json:"settled,omitempty" msgpack:"settled,omitempty"`
	At      time.Time `json:"at" msgpack:"at"`
}

// Sink receives events in commit order. Publish is called inside the
// ledger's critical section, so implementations must not block for long;
// hand the event off to a channel or queue instead.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// Sinks fans a single event stream out to several sinks, in order.
type Sinks []Sink

func (s Sinks) Publish(ev Event) {
	for _, sink := range s {
		sink.Publish(ev)
	}
}
