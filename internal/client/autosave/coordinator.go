// Package autosave debounces element edits and flushes them to the remote
// store in the background.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/client/store"
	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
)

// DefaultDelay is the debounce window used when the config does not set one.
const DefaultDelay = 1500 * time.Millisecond

// Publisher receives a ChangeEvent after a flush settles.
type Publisher interface {
	Publish(e *models.ChangeEvent)
}

type pendingEdit struct {
	elementType string
	elementID   string
	value       any
	timer       *time.Timer
}

// Coordinator debounces edits per element key. Each key moves through
// idle -> pending -> flushing; a repeated edit while pending replaces the
// buffered value and restarts the timer (last value wins). Flushes are
// fire-and-forget: an edit arriving during an in-flight flush starts a new
// cycle, and the server's version counter orders the writes.
type Coordinator struct {
	store  store.Store
	events Publisher
	delay  time.Duration
	logger logging.Logger

	mu      sync.Mutex
	pending map[string]*pendingEdit
	failed  int64
}

// New builds a coordinator. events may be nil to disable change events.
func New(s store.Store, events Publisher, cfg *config.Config, logger logging.Logger) *Coordinator {
	delay := cfg.AutosaveDelay
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coordinator{
		store:   s,
		events:  events,
		delay:   delay,
		logger:  logger.With("module", "autosave"),
		pending: map[string]*pendingEdit{},
	}
}

// Edit buffers one edit. The flush fires after the debounce window passes
// with no further edit for the same key.
func (c *Coordinator) Edit(elementType, elementID string, value any) {
	key := common.ElementKey(elementType, elementID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[key]; ok {
		p.value = value
		p.timer.Reset(c.delay)
		return
	}

	p := &pendingEdit{elementType: elementType, elementID: elementID, value: value}
	p.timer = time.AfterFunc(c.delay, func() { c.flush(key) })
	c.pending[key] = p
}

// SaveNow cancels any pending debounce for the key and writes immediately,
// with validation and a change event.
func (c *Coordinator) SaveNow(ctx context.Context, elementType, elementID string, value any) (*store.SetResult, error) {
	key := common.ElementKey(elementType, elementID)

	c.mu.Lock()
	if p, ok := c.pending[key]; ok {
		p.timer.Stop()
		delete(c.pending, key)
	}
	c.mu.Unlock()

	return c.store.Set(ctx, elementType, elementID, value, store.SetOptions{
		Validate: true,
		Notify:   true,
	})
}

// CancelAll drops every buffered edit without flushing. Idempotent.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, key)
	}
}

// PendingCount reports how many keys hold an unsaved edit.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// FailedCount reports how many flushes have failed since start.
func (c *Coordinator) FailedCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// flush runs on the timer goroutine. The pending entry is removed before
// the network call so PendingCount reflects only unflushed edits.
func (c *Coordinator) flush(key string) {
	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	c.mu.Unlock()

	ctx := context.Background()

	res, err := c.store.Set(ctx, p.elementType, p.elementID, p.value, store.SetOptions{
		AutoSave: true,
		Validate: true,
		Notify:   false,
	})
	if err != nil {
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		c.logger.Warn(ctx, "autosave flush failed", "element", key, "error", err.Error())
		return
	}

	if c.events != nil {
		c.events.Publish(&models.ChangeEvent{
			ElementType: p.elementType,
			ElementID:   p.elementID,
			Action:      models.ActionUpsert,
			NewValue:    res.Sanitized,
			Timestamp:   res.Element.UpdatedAt,
		})
	}
}
