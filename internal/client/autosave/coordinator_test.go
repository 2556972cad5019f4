package autosave

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/client/store"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedCall struct {
	elementType string
	elementID   string
	value       any
	opts        store.SetOptions
}

// fakeStore records Set calls; other Store methods are unused here.
type fakeStore struct {
	store.Store

	mu     sync.Mutex
	calls  []savedCall
	setErr error
}

func (f *fakeStore) Set(ctx context.Context, elementType, elementID string, value any, opts store.SetOptions) (*store.SetResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return nil, f.setErr
	}
	f.calls = append(f.calls, savedCall{elementType: elementType, elementID: elementID, value: value, opts: opts})
	return &store.SetResult{
		Element:   &models.Element{ElementType: elementType, ElementID: elementID, UpdatedAt: time.Now()},
		Sanitized: value,
	}, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) lastCall() savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type recordingBus struct {
	mu     sync.Mutex
	events []*models.ChangeEvent
}

func (b *recordingBus) Publish(e *models.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

const testDelay = 30 * time.Millisecond

func newCoordinator(t *testing.T) (*Coordinator, *fakeStore, *recordingBus) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AutosaveDelay = testDelay

	fs := &fakeStore{}
	rb := &recordingBus{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	c := New(fs, rb, cfg, logger)
	t.Cleanup(c.CancelAll)
	return c, fs, rb
}

func TestEdit_CoalescesWithinWindow(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "v1")
	c.Edit("text", "bio", "v2")
	c.Edit("text", "bio", "v3")

	require.Eventually(t, func() bool { return fs.callCount() == 1 }, time.Second, 5*time.Millisecond)

	call := fs.lastCall()
	assert.Equal(t, "v3", call.value, "last value wins")
	assert.True(t, call.opts.AutoSave)
	assert.True(t, call.opts.Validate)
	assert.False(t, call.opts.Notify)

	// no second flush arrives later
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, fs.callCount())
}

func TestEdit_SeparateWindowsFlushSeparately(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "v1")
	require.Eventually(t, func() bool { return fs.callCount() == 1 }, time.Second, 5*time.Millisecond)

	c.Edit("text", "bio", "v2")
	require.Eventually(t, func() bool { return fs.callCount() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, "v2", fs.lastCall().value)
}

func TestEdit_IndependentKeys(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "a")
	c.Edit("text", "headline", "b")
	assert.Equal(t, 2, c.PendingCount())

	require.Eventually(t, func() bool { return fs.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.PendingCount())
}

func TestSaveNow_CancelsPendingAndNotifies(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "draft")
	res, err := c.SaveNow(context.Background(), "text", "bio", "final")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 0, c.PendingCount())
	require.Equal(t, 1, fs.callCount())

	call := fs.lastCall()
	assert.Equal(t, "final", call.value)
	assert.True(t, call.opts.Notify)
	assert.False(t, call.opts.AutoSave)

	// the cancelled debounce never fires
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, fs.callCount())
}

func TestCancelAll(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "a")
	c.Edit("text", "headline", "b")
	require.Equal(t, 2, c.PendingCount())

	c.CancelAll()
	assert.Equal(t, 0, c.PendingCount())

	// idempotent
	c.CancelAll()

	time.Sleep(3 * testDelay)
	assert.Equal(t, 0, fs.callCount(), "cancelled edits must never flush")
}

func TestFlush_PublishesChangeEvent(t *testing.T) {
	c, _, rb := newCoordinator(t)

	c.Edit("text", "bio", "hello")

	require.Eventually(t, func() bool { return rb.count() == 1 }, time.Second, 5*time.Millisecond)

	rb.mu.Lock()
	e := rb.events[0]
	rb.mu.Unlock()
	assert.Equal(t, models.ActionUpsert, e.Action)
	assert.Equal(t, "hello", e.NewValue)
}

func TestFlush_FailureBumpsCounterWithoutRetry(t *testing.T) {
	c, fs, rb := newCoordinator(t)
	fs.setErr = errors.New("backend down")

	c.Edit("text", "bio", "hello")

	require.Eventually(t, func() bool { return c.FailedCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.PendingCount(), "failed flush clears the pending entry")
	assert.Equal(t, 0, rb.count(), "no event for a failed flush")

	time.Sleep(3 * testDelay)
	assert.EqualValues(t, 1, c.FailedCount(), "no retry")
}

func TestEdit_AfterFlushStartsNewCycle(t *testing.T) {
	c, fs, _ := newCoordinator(t)

	c.Edit("text", "bio", "v1")
	require.Eventually(t, func() bool { return fs.callCount() == 1 }, time.Second, 5*time.Millisecond)

	c.Edit("text", "bio", "v2")
	assert.Equal(t, 1, c.PendingCount())
	require.Eventually(t, func() bool { return fs.callCount() == 2 }, time.Second, 5*time.Millisecond)
}
