// Package store is the client-side gateway to the remote element store:
// typed CRUD over HTTP/JSON with local validation and transparent access
// token refresh.
package store

import (
	"context"

	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/validation"
)

// SetOptions tune one write.
type SetOptions struct {
	// AutoSave marks the write as debounce-driven rather than explicit.
	AutoSave bool

	// Validate runs local validation before the element leaves the client.
	Validate bool

	// Notify publishes a ChangeEvent on the local bus after a successful
	// write. Autosave flushes keep this off; the coordinator publishes its
	// own event after the flush settles.
	Notify bool

	// Kind selects the validation rules; empty means infer from the value
	// (string -> text, anything else -> json).
	Kind validation.Kind

	// Constraints tunes the selected rules.
	Constraints validation.Constraints
}

// SetResult reports a completed write.
type SetResult struct {
	Element *models.Element

	// Sanitized is the value that was actually stored, after local
	// validation rewrote it.
	Sanitized any
}

// BulkResult mirrors the server's bulk response.
type BulkResult struct {
	SavedCount int      `json:"saved_count"`
	Errors     []string `json:"errors"`
}

// Store is the remote element gateway the editing UI and the autosave
// coordinator talk to.
type Store interface {
	// Get returns the element, or (nil, nil) when it does not exist.
	Get(ctx context.Context, elementType, elementID string) (*models.Element, error)

	// Set writes one element. Without a session it fails with
	// common.ErrorUnauthenticated; local validation failures surface as a
	// *validation.Error; transport and storage faults are wrapped in
	// common.ErrorBackend.
	Set(ctx context.Context, elementType, elementID string, value any, opts SetOptions) (*SetResult, error)

	// Delete removes the element server-side (soft delete with best-effort
	// backup). It reports whether anything was deleted.
	Delete(ctx context.Context, elementType, elementID string) (bool, error)

	// ListAll returns every element keyed by "type:id". It degrades to an
	// empty map on any failure.
	ListAll(ctx context.Context) map[string]any

	// BulkSet applies updates with partial success allowed.
	BulkSet(ctx context.Context, updates []*models.ElementUpdate) (*BulkResult, error)
}
