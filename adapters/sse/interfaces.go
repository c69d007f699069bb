package sse

// PublishRequest addresses one message to one channel.
type PublishRequest[T any] struct {
	Channel string `json:"channel"`
	Message T      `json:"message"`
}

// IChannel is the per-topic broadcast surface.
type IChannel[T any] interface {
	// Subscribe registers a new subscriber and returns its read side.
	Subscribe() <-chan T
	// Unsubscribe removes the given subscriber.
	Unsubscribe(ch <-chan T)
	// UnsubscribeAll removes every subscriber.
	UnsubscribeAll()
	// Broadcast delivers the message to every subscriber.
	Broadcast(message T)
	// IsIdle reports whether the channel has no subscribers.
	IsIdle() bool
}

// IConnectionManager owns the set of channels and the pump that feeds them.
type IConnectionManager[T any] interface {
	// Start begins receiving and broadcasting messages. Call it before
	// any other method.
	Start()
	// Done stops the manager and releases every resource.
	Done()
	// Subscribe registers a subscription on the named channel.
	Subscribe(channelName string) (<-chan T, error)
	// Publish pushes data to the named channel.
	Publish(channelName string, data T) error
	// Unsubscribe cancels a subscription on the named channel.
	Unsubscribe(channelName string, ch <-chan T)
}
