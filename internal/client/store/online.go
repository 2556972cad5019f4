package store

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/logging"
)

// Ping probes server reachability without a session.
func (s *HTTPStore) Ping(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodGet, "/api/ping", "", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: ping failed with status %d", common.ErrorBackend, status)
	}
	return nil
}

// OnlineMonitor polls the server and tracks reachability for the UI's
// online indicator.
type OnlineMonitor struct {
	store    *HTTPStore
	interval time.Duration
	logger   logging.Logger
	online   atomic.Bool
}

// NewOnlineMonitor builds a monitor; the store starts as offline until the
// first successful probe.
func NewOnlineMonitor(s *HTTPStore, cfg *config.Config, logger logging.Logger) *OnlineMonitor {
	return &OnlineMonitor{
		store:    s,
		interval: cfg.OnlineCheckInterval,
		logger:   logger.With("module", "online"),
	}
}

// Online reports the result of the most recent probe.
func (m *OnlineMonitor) Online() bool {
	return m.online.Load()
}

// Run probes immediately and then on every interval tick until ctx ends.
func (m *OnlineMonitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *OnlineMonitor) probe(ctx context.Context) {
	err := m.store.Ping(ctx)
	was := m.online.Swap(err == nil)

	switch {
	case err == nil && !was:
		m.logger.Info(ctx, "server reachable")
	case err != nil && was:
		m.logger.Warn(ctx, "server unreachable", "error", err.Error())
	}
}
