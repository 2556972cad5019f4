// Package httpapi exposes the element store over HTTP/JSON plus a websocket
// change feed, with Prometheus metrics at /metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/metrics"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/server/services"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ElementAPI is the element-service surface the handlers need.
type ElementAPI interface {
	Upsert(ctx context.Context, ownerID string, upd *models.ElementUpdate) (*models.Element, error)
	BulkUpsert(ctx context.Context, ownerID string, updates []*models.ElementUpdate) *services.BulkResult
	List(ctx context.Context, ownerID, elementType, elementID string) ([]*models.Element, error)
	Delete(ctx context.Context, ownerID, elementType, elementID string) (bool, error)
	AuditLog(ctx context.Context, ownerID string, limit int) ([]*models.AuditRecord, error)
}

// ShareAPI is the share-service surface the handlers need.
type ShareAPI interface {
	Create(ctx context.Context, ownerID, elementType, elementID string, permissions []string, ttl time.Duration) (*models.ShareLink, error)
	Validate(ctx context.Context, shareID string) (*models.ShareLink, error)
	Resolve(ctx context.Context, shareID string) (*models.ShareLink, *models.Element, error)
	Revoke(ctx context.Context, ownerID, shareID string) (bool, error)
}

// UserAPI is the user-service surface the handlers need.
type UserAPI interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// Server holds the route table and the services behind it.
type Server struct {
	elements ElementAPI
	shares   ShareAPI
	users    UserAPI
	hub      *Hub

	jwtSecret []byte
	logger    logging.Logger
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader

	handler http.Handler
}

// NewServer wires routes. m may be nil to disable metrics (tests).
func NewServer(elements ElementAPI, shares ShareAPI, users UserAPI, hub *Hub, jwtSecret []byte, m *metrics.Metrics, logger logging.Logger) *Server {
	s := &Server{
		elements:  elements,
		shares:    shares,
		users:     users,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    logger.With("module", "httpapi"),
		metrics:   m,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	if m != nil && hub != nil {
		hub.onConnect = m.WebsocketClients.Inc
		hub.onDisconnect = m.WebsocketClients.Dec
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", s.handlePing)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/elements", s.withAuth(s.handleListElements))
	mux.HandleFunc("PUT /api/elements", s.withAuth(s.handleUpsertElement))
	mux.HandleFunc("POST /api/elements/bulk", s.withAuth(s.handleBulkUpsert))
	mux.HandleFunc("DELETE /api/elements/{type}/{id}", s.withAuth(s.handleDeleteElement))
	mux.HandleFunc("GET /api/audit", s.withAuth(s.handleAudit))

	mux.HandleFunc("POST /api/shares", s.withAuth(s.handleCreateShare))
	mux.HandleFunc("GET /api/shares/{id}", s.handleValidateShare)
	mux.HandleFunc("POST /api/shares/{id}/access", s.handleShareAccess)
	mux.HandleFunc("DELETE /api/shares/{id}", s.withAuth(s.handleRevokeShare))

	mux.HandleFunc("GET /api/ws", s.handleWebsocket)

	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = s.instrument(mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
