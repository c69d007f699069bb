package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/smallnest/chanx"
)

// ErrManagerClosed is returned once the manager has been stopped.
var ErrManagerClosed = errors.New("connection manager is closed")

// connectionManager fans an event stream out to per-topic SSE channels.
// Publishing goes through an unbounded channel so producers (the ledger's
// critical section among them) never block on slow subscribers.
type connectionManager[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex // guards active and channels
	wg     sync.WaitGroup
	active bool

	pump     *chanx.UnboundedChan[PublishRequest[T]]
	channels map[string]*Channel[T]
}

// ManagerOption customizes a connection manager.
type ManagerOption[T any] func(*connectionManager[T])

// WithLogger replaces the default slog logger.
func WithLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(cm *connectionManager[T]) {
		if logger != nil {
			cm.logger = logger
		}
	}
}

// NewConnectionManager creates a manager ready to Start.
func NewConnectionManager[T any](opts ...ManagerOption[T]) (IConnectionManager[T], error) {
	ctx, cancel := context.WithCancel(context.Background())
	cm := &connectionManager[T]{
		ctx:      ctx,
		cancel:   cancel,
		logger:   slog.Default(),
		pump:     chanx.NewUnboundedChan[PublishRequest[T]](ctx, 100),
		channels: make(map[string]*Channel[T]),
		active:   true,
	}
	for _, opt := range opts {
		opt(cm)
	}
	cm.logger = cm.logger.With(slog.String("caller", "ConnectionManager"))
	return cm, nil
}

// Start begins receiving and broadcasting messages. Call it before any
// other method.
func (cm *connectionManager[T]) Start() {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		defer cm.logger.Info("broadcast goroutine stopped")
		for {
			select {
			case <-cm.ctx.Done():
				return
			case msg, ok := <-cm.pump.Out:
				if !ok {
					return
				}
				cm.mu.RLock()
				if channel, exists := cm.channels[msg.Channel]; exists {
					channel.Broadcast(msg.Message)
				}
				cm.mu.RUnlock()
			}
		}
	}()
}

// Done stops the manager and closes every subscriber channel.
func (cm *connectionManager[T]) Done() {
	cm.mu.Lock()
	if !cm.active {
		cm.mu.Unlock()
		return
	}
	cm.active = false
	cm.mu.Unlock()

	cm.cancel()
	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

// Subscribe registers a subscription on the named channel.
func (cm *connectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.active {
		return nil, ErrManagerClosed
	}

	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T]()
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

// Publish pushes data to the named channel. It never blocks.
func (cm *connectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.active {
		return ErrManagerClosed
	}

	select {
	case cm.pump.In <- PublishRequest[T]{Channel: channelName, Message: data}:
		return nil
	case <-cm.ctx.Done():
		return ErrManagerClosed
	}
}

// Unsubscribe cancels a subscription on the named channel.
func (cm *connectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
