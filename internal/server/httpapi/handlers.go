package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/server/auth"
	"github.com/foliosync/foliosync/internal/timex"
	"github.com/foliosync/foliosync/internal/validation"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps service errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation", Messages: verr.Messages})
	case errors.Is(err, common.ErrorUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, common.ErrorNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrShareRevoked):
		s.writeJSON(w, http.StatusGone, errorResponse{Error: "share revoked"})
	case errors.Is(err, common.ErrShareExpired):
		s.writeJSON(w, http.StatusGone, errorResponse{Error: "share expired"})
	default:
		s.logger.Error(r.Context(), "request failed", "route", r.Pattern, "error", err.Error())
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// handlePing is the liveness probe used by the client's online indicator.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- auth ----

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil || req.Username == "" || req.Password == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.UserName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil || req.RefreshToken == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh_token is required"})
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pair)
}

// ---- elements ----

func (s *Server) handleListElements(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	list, err := s.elements.List(r.Context(), ownerID, r.URL.Query().Get("type"), r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"elements": list})
}

func (s *Server) handleUpsertElement(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	var upd models.ElementUpdate
	if err := decodeBody(r, &upd); err != nil || upd.ElementType == "" || upd.ElementID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "element_type and element_id are required"})
		return
	}

	e, err := s.elements.Upsert(r.Context(), ownerID, &upd)
	if err != nil {
		s.countSave("error")
		s.writeError(w, r, err)
		return
	}

	s.countSave("ok")
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleBulkUpsert(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	var req struct {
		Updates []*models.ElementUpdate `json:"updates"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result := s.elements.BulkUpsert(r.Context(), ownerID, req.Updates)
	s.countSaveN("ok", result.SavedCount)
	s.countSaveN("error", len(result.Errors))

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	deleted, err := s.elements.Delete(r.Context(), ownerID, r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if deleted && s.metrics != nil {
		s.metrics.ElementDeletesTotal.Inc()
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := s.elements.AuditLog(r.Context(), ownerID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// ---- shares ----

type createShareRequest struct {
	ElementType string         `json:"element_type"`
	ElementID   string         `json:"element_id"`
	Permissions []string       `json:"permissions"`
	TTL         timex.Duration `json:"ttl"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	var req createShareRequest
	if err := decodeBody(r, &req); err != nil || req.ElementType == "" || req.ElementID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "element_type and element_id are required"})
		return
	}

	link, err := s.shares.Create(r.Context(), ownerID, req.ElementType, req.ElementID, req.Permissions, req.TTL.Duration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleValidateShare(w http.ResponseWriter, r *http.Request) {
	link, err := s.shares.Validate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// validity check only: no owner, no content, no access recorded
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":           link.ID,
		"element_type": link.ElementType,
		"element_id":   link.ElementID,
		"permissions":  link.Permissions,
		"expires_at":   link.ExpiresAt,
	})
}

func (s *Server) handleShareAccess(w http.ResponseWriter, r *http.Request) {
	link, element, err := s.shares.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ShareAccessesTotal.Inc()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"permissions": link.Permissions,
		"element":     element,
	})
}

func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromContext(r.Context())

	revoked, err := s.shares.Revoke(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// ---- realtime ----

// handleWebsocket upgrades the connection and streams change notifications.
// Owners authenticate with a token (header or ?token=); share visitors pass
// a valid share id instead and receive the owning portfolio's feed.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	var ownerID string

	token := r.Header.Get(common.AccessTokenHeaderName)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	switch {
	case token != "":
		id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ownerID = id
	case r.URL.Query().Get(common.ShareQueryParam) != "":
		link, err := s.shares.Validate(r.Context(), r.URL.Query().Get(common.ShareQueryParam))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ownerID = link.OwnerID
	default:
		s.writeError(w, r, common.ErrorUnauthenticated)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		s.logger.Debug(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	s.hub.serve(r.Context(), conn, ownerID)
}

func (s *Server) countSave(status string) {
	s.countSaveN(status, 1)
}

func (s *Server) countSaveN(status string, n int) {
	if s.metrics == nil || n <= 0 {
		return
	}
	s.metrics.ElementSavesTotal.WithLabelValues(status).Add(float64(n))
}
