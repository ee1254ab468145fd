package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
)

func newTestBus() *Bus {
	return &Bus{subs: make(map[string]map[*busSubscription]struct{})}
}

func testMessage(id, from, to string) conversation.Message {
	return conversation.Message{
		ID:        id,
		FromUser:  from,
		ToUser:    to,
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	}
}

func TestBusFanOutDeliversToUserSubscribers(t *testing.T) {
	bus := newTestBus()

	subA, err := bus.Subscribe("alice")
	require.NoError(t, err)
	defer subA.Close()
	subB, err := bus.Subscribe("bob")
	require.NoError(t, err)
	defer subB.Close()

	bus.fanOut("alice", testMessage("m1", "bob", "alice"))

	select {
	case m := <-subA.Events():
		assert.Equal(t, "m1", m.ID)
	case <-time.After(time.Second):
		t.Fatal("alice's subscriber did not receive the event")
	}

	select {
	case m := <-subB.Events():
		t.Fatalf("bob's subscriber received an event for alice: %v", m.ID)
	default:
	}
}

func TestBusFanOutReachesAllSubscribersOfSameUser(t *testing.T) {
	bus := newTestBus()

	sub1, err := bus.Subscribe("alice")
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := bus.Subscribe("alice")
	require.NoError(t, err)
	defer sub2.Close()

	bus.fanOut("alice", testMessage("m1", "bob", "alice"))

	for _, sub := range []conversation.Subscription{sub1, sub2} {
		select {
		case m := <-sub.Events():
			assert.Equal(t, "m1", m.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := newTestBus()

	sub, err := bus.Subscribe("alice")
	require.NoError(t, err)
	defer sub.Close()

	// Never drained: overfill the buffer and make sure fanOut returns.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.fanOut("alice", testMessage("m", "bob", "alice"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fanOut blocked on a slow subscriber")
	}
}

func TestBusCloseUnregistersAndClosesChannel(t *testing.T) {
	bus := newTestBus()

	sub, err := bus.Subscribe("alice")
	require.NoError(t, err)

	sub.Close()
	// Idempotent
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)

	bus.mu.RLock()
	_, registered := bus.subs["alice"]
	bus.mu.RUnlock()
	assert.False(t, registered)

	// Publishing to a fully unsubscribed user is a no-op.
	bus.fanOut("alice", testMessage("m1", "bob", "alice"))
}
