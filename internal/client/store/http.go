package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/validation"
)

const requestTimeout = 10 * time.Second

// Publisher receives a ChangeEvent after a successful write with
// SetOptions.Notify set. The change bus implements it.
type Publisher interface {
	Publish(e *models.ChangeEvent)
}

// HTTPStore talks to the element-store server. Safe for concurrent use.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
	events  Publisher

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore builds a store from the client config. events may be nil.
func NewHTTPStore(cfg *config.Config, events Publisher, logger logging.Logger) *HTTPStore {
	return &HTTPStore{
		baseURL: cfg.ServerEndpointAddr,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger.With("module", "store"),
		events:  events,
	}
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account on the server.
func (s *HTTPStore) Register(ctx context.Context, username, password string) error {
	status, err := s.do(ctx, http.MethodPost, "/api/register", "",
		map[string]string{"username": username, "password": password}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%w: register failed with status %d", common.ErrorBackend, status)
	}
	return nil
}

// Login authenticates and stores the session tokens.
func (s *HTTPStore) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	status, err := s.do(ctx, http.MethodPost, "/api/login", "",
		map[string]string{"username": username, "password": password}, &pair)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: login failed with status %d", common.ErrorBackend, status)
	}

	s.setSession(pair)
	return nil
}

// HasSession reports whether the store holds an access token.
func (s *HTTPStore) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

func (s *HTTPStore) setSession(pair tokenPair) {
	s.mu.Lock()
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.mu.Unlock()
}

func (s *HTTPStore) session() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// refresh exchanges the refresh token for a new pair.
func (s *HTTPStore) refresh(ctx context.Context) error {
	_, refreshToken := s.session()
	if refreshToken == "" {
		return common.ErrorUnauthenticated
	}

	var pair tokenPair
	status, err := s.do(ctx, http.MethodPost, "/api/refresh", "",
		map[string]string{"refresh_token": refreshToken}, &pair)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return common.ErrorUnauthenticated
	}

	s.setSession(pair)
	return nil
}

// do performs one request. out may be nil; a non-2xx body is drained and
// discarded unless out wants it.
func (s *HTTPStore) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AccessTokenHeaderName, token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorBackend, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: error decoding response: %v", common.ErrorBackend, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

// doAuthed performs an authenticated request, refreshing the access token
// and retrying once when the server rejects it.
func (s *HTTPStore) doAuthed(ctx context.Context, method, path string, body, out any) (int, error) {
	accessToken, _ := s.session()
	if accessToken == "" {
		return 0, common.ErrorUnauthenticated
	}

	status, err := s.do(ctx, method, path, accessToken, body, out)
	if err != nil {
		return status, err
	}
	if status != http.StatusUnauthorized {
		return status, nil
	}

	if err := s.refresh(ctx); err != nil {
		return http.StatusUnauthorized, common.ErrorUnauthenticated
	}

	accessToken, _ = s.session()
	return s.do(ctx, method, path, accessToken, body, out)
}

// inferKind picks validation rules when the caller did not.
func inferKind(value any) validation.Kind {
	if _, ok := value.(string); ok {
		return validation.KindText
	}
	return validation.KindJSON
}

// Get returns the element, or (nil, nil) when it does not exist.
func (s *HTTPStore) Get(ctx context.Context, elementType, elementID string) (*models.Element, error) {
	var out struct {
		Elements []*models.Element `json:"elements"`
	}

	path := "/api/elements?type=" + url.QueryEscape(elementType) + "&id=" + url.QueryEscape(elementID)
	status, err := s.doAuthed(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: list failed with status %d", common.ErrorBackend, status)
	}

	if len(out.Elements) == 0 {
		return nil, nil
	}
	return out.Elements[0], nil
}

// Set validates locally (when asked), writes the element, and optionally
// publishes a ChangeEvent.
func (s *HTTPStore) Set(ctx context.Context, elementType, elementID string, value any, opts SetOptions) (*SetResult, error) {
	if !s.HasSession() {
		return nil, common.ErrorUnauthenticated
	}

	stored := value
	if opts.Validate {
		kind := opts.Kind
		if kind == "" {
			kind = inferKind(value)
		}
		res := validation.Validate(value, kind, opts.Constraints)
		if !res.Valid {
			return nil, validation.NewError(res.Errors)
		}
		stored = res.Sanitized
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("error encoding value: %w", err)
	}

	var old *models.Element
	if opts.Notify {
		// best-effort read of the previous value for the event
		old, _ = s.Get(ctx, elementType, elementID)
	}

	var saved models.Element
	status, err := s.doAuthed(ctx, http.MethodPut, "/api/elements", &models.ElementUpdate{
		ElementType: elementType,
		ElementID:   elementID,
		Value:       raw,
	}, &saved)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: save failed with status %d", common.ErrorBackend, status)
	}

	if opts.Notify && s.events != nil {
		event := &models.ChangeEvent{
			ElementType: elementType,
			ElementID:   elementID,
			Action:      models.ActionUpsert,
			NewValue:    stored,
			Timestamp:   saved.UpdatedAt,
		}
		if old != nil {
			var oldValue any
			if old.DecodeValue(&oldValue) == nil {
				event.OldValue = oldValue
			}
		}
		s.events.Publish(event)
	}

	return &SetResult{Element: &saved, Sanitized: stored}, nil
}

// Delete removes the element; a missing element reports false, not an error.
func (s *HTTPStore) Delete(ctx context.Context, elementType, elementID string) (bool, error) {
	if !s.HasSession() {
		return false, common.ErrorUnauthenticated
	}

	var out struct {
		Deleted bool `json:"deleted"`
	}
	path := "/api/elements/" + url.PathEscape(elementType) + "/" + url.PathEscape(elementID)
	status, err := s.doAuthed(ctx, http.MethodDelete, path, nil, &out)
	if err != nil {
		return false, err
	}
	if status == http.StatusUnauthorized {
		return false, common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("%w: delete failed with status %d", common.ErrorBackend, status)
	}

	if out.Deleted && s.events != nil {
		s.events.Publish(&models.ChangeEvent{
			ElementType: elementType,
			ElementID:   elementID,
			Action:      models.ActionDelete,
			Timestamp:   time.Now(),
		})
	}

	return out.Deleted, nil
}

// ListAll returns every element keyed "type:id". Failures degrade to an
// empty map so render paths never break.
func (s *HTTPStore) ListAll(ctx context.Context) map[string]any {
	result := map[string]any{}

	var out struct {
		Elements []*models.Element `json:"elements"`
	}
	status, err := s.doAuthed(ctx, http.MethodGet, "/api/elements", nil, &out)
	if err != nil || status != http.StatusOK {
		s.logger.Warn(ctx, "element listing degraded", "status", status)
		return result
	}

	for _, e := range out.Elements {
		var value any
		if err := e.DecodeValue(&value); err != nil {
			continue
		}
		result[common.ElementKey(e.ElementType, e.ElementID)] = value
	}
	return result
}

// BulkSet applies updates with partial success allowed.
func (s *HTTPStore) BulkSet(ctx context.Context, updates []*models.ElementUpdate) (*BulkResult, error) {
	if !s.HasSession() {
		return nil, common.ErrorUnauthenticated
	}

	var out BulkResult
	status, err := s.doAuthed(ctx, http.MethodPost, "/api/elements/bulk",
		map[string]any{"updates": updates}, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: bulk save failed with status %d", common.ErrorBackend, status)
	}

	return &out, nil
}

// CreateShare issues a share link for one element. ttl <= 0 lets the server
// apply its default.
func (s *HTTPStore) CreateShare(ctx context.Context, elementType, elementID string, permissions []string, ttl time.Duration) (*models.ShareLink, error) {
	if !s.HasSession() {
		return nil, common.ErrorUnauthenticated
	}

	body := map[string]any{
		"element_type": elementType,
		"element_id":   elementID,
		"permissions":  permissions,
	}
	if ttl > 0 {
		body["ttl"] = ttl.String()
	}

	var link models.ShareLink
	status, err := s.doAuthed(ctx, http.MethodPost, "/api/shares", body, &link)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusCreated:
		return &link, nil
	case http.StatusUnauthorized:
		return nil, common.ErrorUnauthenticated
	case http.StatusNotFound:
		return nil, common.ErrorNotFound
	default:
		return nil, fmt.Errorf("%w: share create failed with status %d", common.ErrorBackend, status)
	}
}

// RevokeShare deactivates a share link.
func (s *HTTPStore) RevokeShare(ctx context.Context, shareID string) (bool, error) {
	if !s.HasSession() {
		return false, common.ErrorUnauthenticated
	}

	var out struct {
		Revoked bool `json:"revoked"`
	}
	status, err := s.doAuthed(ctx, http.MethodDelete, "/api/shares/"+url.PathEscape(shareID), nil, &out)
	if err != nil {
		return false, err
	}
	if status == http.StatusUnauthorized {
		return false, common.ErrorUnauthenticated
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("%w: share revoke failed with status %d", common.ErrorBackend, status)
	}
	return out.Revoked, nil
}
