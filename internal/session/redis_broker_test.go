package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func startRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := NewRedisBroker(client, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("relay did not stop")
		}
	})

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(DefaultChannel)[DefaultChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)
	return broker, mr
}

func TestRedisBrokerRelaysPublishedEvents(t *testing.T) {
	broker, _ := startRedisBroker(t)
	sink := &eventSink{}
	sub := broker.Subscribe(sink.record)
	defer sub.Unsubscribe()

	occurred := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, broker.Publish(context.Background(), Event{
		Kind:       EventSessionEstablished,
		SessionID:  "sess-1",
		UserID:     "github:42",
		ClientKey:  "state-abc",
		OccurredAt: occurred,
	}))

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := sink.snapshot()[0]
	assert.Equal(t, EventSessionEstablished, got.Kind)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "github:42", got.UserID)
	assert.Equal(t, "state-abc", got.ClientKey)
	assert.True(t, occurred.Equal(got.OccurredAt))
}

func TestRedisBrokerSkipsMalformedPayloads(t *testing.T) {
	broker, mr := startRedisBroker(t)
	sink := &eventSink{}
	sub := broker.Subscribe(sink.record)
	defer sub.Unsubscribe()

	mr.Publish(DefaultChannel, "{not json")
	require.NoError(t, broker.Publish(context.Background(), Event{Kind: EventSessionEnded, SessionID: "sess-2"}))

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, EventSessionEnded, sink.snapshot()[0].Kind)
}

func TestRedisBrokerUnsubscribeStopsDelivery(t *testing.T) {
	broker, _ := startRedisBroker(t)
	first := &eventSink{}
	second := &eventSink{}
	sub := broker.Subscribe(first.record)
	keep := broker.Subscribe(second.record)
	defer keep.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, broker.Publish(context.Background(), Event{Kind: EventSessionEnded, SessionID: "sess-3"}))

	require.Eventually(t, func() bool { return len(second.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, first.snapshot())
}
