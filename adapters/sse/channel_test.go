package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"auctiond/adapters/sse"
)

func TestChannel(t *testing.T) {
	ch := sse.NewChannel[Message]()

	sub := ch.Subscribe()
	assert.NotNil(t, sub)

	msg := Message{Data: "test message"}
	go ch.Broadcast(msg)

	select {
	case received := <-sub:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	ch.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok, "channel should be closed")

	assert.True(t, ch.IsIdle(), "channel should be idle")
}

func TestChannel_BroadcastNeverBlocksOnStalledSubscriber(t *testing.T) {
	ch := sse.NewChannel[Message]()
	stalled := ch.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			ch.Broadcast(Message{Data: "burst"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a subscriber that stopped reading")
	}

	// The stalled subscriber keeps whatever fit in its buffer; the rest
	// of the burst was dropped.
	drained := 0
	for len(stalled) > 0 {
		<-stalled
		drained++
	}
	assert.Greater(t, drained, 0)
	ch.Unsubscribe(stalled)
}

func TestChannel_UnsubscribeAll(t *testing.T) {
	ch := sse.NewChannel[Message]()

	first := ch.Subscribe()
	second := ch.Subscribe()

	ch.UnsubscribeAll()
	_, ok := <-first
	assert.False(t, ok)
	_, ok = <-second
	assert.False(t, ok)
	assert.True(t, ch.IsIdle())
}
