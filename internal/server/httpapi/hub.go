package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/gorilla/websocket"
)

const (
	subscriberBufferSize = 16
	writeWait            = 10 * time.Second
)

// Hub fans element change notifications out to connected realtime clients,
// grouped by owner. It implements services.ChangeNotifier. Slow clients are
// skipped rather than blocking the write path.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	logger logging.Logger

	// optional gauge callbacks, set by the server when metrics are enabled
	onConnect    func()
	onDisconnect func()
}

type subscriber struct {
	ownerID string
	send    chan *models.ChangeNotification
}

// NewHub constructs an empty hub.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		subs:   map[string]map[*subscriber]struct{}{},
		logger: logger.With("module", "hub"),
	}
}

// Notify delivers a change to every subscriber of ownerID. Never blocks.
func (h *Hub) Notify(ownerID string, n *models.ChangeNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[ownerID] {
		select {
		case sub.send <- n:
		default:
			// subscriber is not keeping up, drop the notification
		}
	}
}

func (h *Hub) register(ownerID string) *subscriber {
	sub := &subscriber{ownerID: ownerID, send: make(chan *models.ChangeNotification, subscriberBufferSize)}

	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = map[*subscriber]struct{}{}
	}
	h.subs[ownerID][sub] = struct{}{}
	h.mu.Unlock()

	if h.onConnect != nil {
		h.onConnect()
	}
	return sub
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[sub.ownerID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.ownerID)
		}
	}
	h.mu.Unlock()

	if h.onDisconnect != nil {
		h.onDisconnect()
	}
}

// serve pumps notifications to one websocket connection until the client
// goes away or ctx is cancelled.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, ownerID string) {
	sub := h.register(ownerID)
	defer h.unregister(sub)
	defer conn.Close()

	// reader: we never expect client frames, but reading is required to
	// observe close frames and connection errors
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case n := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				h.logger.Debug(ctx, "websocket write failed", "owner", ownerID, "error", err.Error())
				return
			}
		}
	}
}
