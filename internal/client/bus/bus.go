// Package bus is the client-side change bus: synchronous fan-out of element
// change events to UI subscribers.
package bus

import (
	"context"
	"sync"

	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
)

// Bus delivers events synchronously, in subscription order. A panicking
// subscriber is recovered and logged and never stops fan-out. Safe for
// concurrent use.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	logger logging.Logger
}

type subscription struct {
	id int
	fn func(e *models.ChangeEvent)
}

// New constructs an empty bus.
func New(logger logging.Logger) *Bus {
	return &Bus{logger: logger.With("module", "bus")}
}

// Subscribe registers fn and returns its unsubscribe function. Unsubscribing
// twice is harmless.
func (b *Bus) Subscribe(fn func(e *models.ChangeEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber. Delivery is synchronous: Publish
// returns after the last subscriber ran.
func (b *Bus) Publish(e *models.ChangeEvent) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscription, e *models.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(context.Background(), "subscriber panicked", "panic", r)
		}
	}()
	s.fn(e)
}

// SubscriberCount reports the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
