package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"auctiond/adapters/sse"
)

func TestConnectionManager(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm, err := sse.NewConnectionManager[Message]()
	assert.NoError(t, err)
	cm.Start()
	defer cm.Done()

	ch, err := cm.Subscribe("test_channel")
	assert.NoError(t, err)
	assert.NotNil(t, ch)

	msg := Message{Data: "test message"}
	err = cm.Publish("test_channel", msg)
	assert.NoError(t, err)

	select {
	case received := <-ch:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	cm.Unsubscribe("test_channel", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestConnectionManager_PublishToIdleChannelDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm, err := sse.NewConnectionManager[Message]()
	assert.NoError(t, err)
	cm.Start()
	defer cm.Done()

	// No subscriber on this channel: the message is dropped, the
	// publisher returns immediately.
	err = cm.Publish("nobody_listening", Message{Data: "dropped"})
	assert.NoError(t, err)
}

func TestConnectionManager_AbandonedSubscriberDoesNotWedgePublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm, err := sse.NewConnectionManager[Message]()
	assert.NoError(t, err)
	cm.Start()
	defer cm.Done()

	ch, err := cm.Subscribe("auction_1")
	assert.NoError(t, err)

	// The subscriber never reads. The broadcast side has to drop once its
	// buffer fills instead of parking with the manager's lock held, which
	// would leave Unsubscribe and every later Publish waiting forever.
	for i := 0; i < 64; i++ {
		assert.NoError(t, cm.Publish("auction_1", Message{Data: "unread"}))
	}

	unsubscribed := make(chan struct{})
	go func() {
		cm.Unsubscribe("auction_1", ch)
		close(unsubscribed)
	}()
	select {
	case <-unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("Unsubscribe blocked behind an in-flight broadcast")
	}

	published := make(chan error, 1)
	go func() { published <- cm.Publish("auction_1", Message{Data: "after"}) }()
	select {
	case err := <-published:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after a subscriber left without draining")
	}
}

func TestConnectionManager_ClosedManagerRejectsCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm, err := sse.NewConnectionManager[Message]()
	assert.NoError(t, err)
	cm.Start()

	ch, err := cm.Subscribe("test_channel")
	assert.NoError(t, err)

	cm.Done()
	_, ok := <-ch
	assert.False(t, ok, "subscriber channel should be closed on Done")

	_, err = cm.Subscribe("test_channel")
	assert.ErrorIs(t, err, sse.ErrManagerClosed)
	err = cm.Publish("test_channel", Message{Data: "late"})
	assert.ErrorIs(t, err, sse.ErrManagerClosed)

	// Done is idempotent.
	cm.Done()
}
