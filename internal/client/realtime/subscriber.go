// Package realtime keeps a websocket subscription to the server's change
// feed and republishes incoming notifications on the local change bus.
package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Publisher receives one ChangeEvent per incoming notification.
type Publisher interface {
	Publish(e *models.ChangeEvent)
}

// Subscriber maintains the websocket connection, reconnecting with
// exponential backoff until its context is cancelled.
type Subscriber struct {
	url    string
	header http.Header
	events Publisher
	logger logging.Logger
}

// New builds a subscriber authenticated with an access token.
func New(cfg *config.Config, accessToken string, events Publisher, logger logging.Logger) *Subscriber {
	header := http.Header{}
	header.Set(common.AccessTokenHeaderName, accessToken)
	return &Subscriber{
		url:    wsURL(cfg.ServerEndpointAddr) + "/api/ws",
		header: header,
		events: events,
		logger: logger.With("module", "realtime"),
	}
}

// NewShareVisitor builds a read-only subscriber for a share link.
func NewShareVisitor(cfg *config.Config, shareID string, events Publisher, logger logging.Logger) *Subscriber {
	return &Subscriber{
		url:    wsURL(cfg.ServerEndpointAddr) + "/api/ws?" + common.ShareQueryParam + "=" + shareID,
		header: http.Header{},
		events: events,
		logger: logger.With("module", "realtime"),
	}
}

func wsURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// Run connects and listens until ctx is cancelled. Each dropped connection
// is re-established with a fresh exponential backoff.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.connect(ctx)
		if err != nil {
			// only a cancelled context stops the dial loop
			return err
		}

		s.listen(ctx, conn)
	}
}

func (s *Subscriber) connect(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn

	backoff := retry.WithCappedDuration(maxBackoff, retry.NewExponential(initialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, s.header)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			s.logger.Debug(ctx, "change feed dial failed", "error", err.Error())
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "change feed connected")
	return conn, nil
}

// listen reads notifications until the connection drops or ctx ends.
func (s *Subscriber) listen(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var n models.ChangeNotification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn(ctx, "change feed dropped", "error", err.Error())
			}
			return
		}

		s.events.Publish(&models.ChangeEvent{
			ElementType: n.ElementType,
			ElementID:   n.ElementID,
			Action:      n.Action,
			NewValue:    n.Data,
			Timestamp:   n.Timestamp,
		})
	}
}
