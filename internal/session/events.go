package session

import (
	"context"
	"sync"
	"time"
)

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventSessionEstablished EventKind = "SESSION_ESTABLISHED"
	EventSessionEnded       EventKind = "SESSION_ENDED"
)

// Event is published whenever a session starts or ends.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	// ClientKey ties an established session to the browser that started the
	// sign-in (the OAuth state nonce).
	ClientKey  string    `json:"client_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subscription is released by calling Unsubscribe; calling it twice is safe.
type Subscription interface {
	Unsubscribe()
}

// Broker fans session events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(fn func(Event)) Subscription
}

// LocalBroker delivers events synchronously to in-process subscribers.
// Handlers must not block.
type LocalBroker struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]func(Event)
}

// NewLocalBroker constructs an empty broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{handlers: make(map[uint64]func(Event))}
}

// Publish delivers the event to every current subscriber.
func (b *LocalBroker) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers fn until the returned subscription is released.
func (b *LocalBroker) Subscribe(fn func(Event)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.handlers[id] = fn
	return &localSubscription{broker: b, id: id}
}

// Len returns the number of live subscriptions.
func (b *LocalBroker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *LocalBroker) remove(id uint64) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

type localSubscription struct {
	broker *LocalBroker
	id     uint64
	once   sync.Once
}

func (s *localSubscription) Unsubscribe() {
	s.once.Do(func() { s.broker.remove(s.id) })
}
