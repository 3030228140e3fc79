package notifications

import (
	"context"
	"log/slog"
	"sync"

	"promptdoumi/internal/middleware"
)

const subscriberBuffer = 16

// Broker delivers auth events to in-process subscribers. Slow subscribers
// lose events rather than block publishers.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan AuthEvent
	closed bool
	quit   chan struct{}
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan AuthEvent), quit: make(chan struct{})}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel; it is safe to call more than once and also runs when
// ctx ends.
func (b *Broker) Subscribe(ctx context.Context) (<-chan AuthEvent, func()) {
	ch := make(chan AuthEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		case <-b.quit:
		}
	}()

	return ch, unsubscribe
}

// Publish hands ev to every current subscriber.
func (b *Broker) Publish(ev AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			middleware.Logger.Warn("auth event dropped for slow subscriber",
				slog.Int("subscriber", id),
				slog.String("event", string(ev.Type)),
			)
		}
	}
}

// Subscribers is the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.quit)
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
