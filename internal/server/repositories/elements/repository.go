package elements

import (
	"context"

	"github.com/foliosync/foliosync/internal/models"
)

// Repository is the server-side contract for element persistence.
type Repository interface {
	// Upsert inserts or updates the element identified by
	// (OwnerID, ElementType, ElementID), atomically incrementing its version
	// and refreshing updated_at. The stored version and timestamp are written
	// back into e.
	Upsert(ctx context.Context, e *models.Element) error

	// Get returns the active element for the identity, or
	// common.ErrorNotFound when no active row exists.
	Get(ctx context.Context, ownerID, elementType, elementID string) (*models.Element, error)

	// List returns active elements for the owner. Empty elementType or
	// elementID filters mean "all".
	List(ctx context.Context, ownerID, elementType, elementID string) ([]*models.Element, error)

	// SoftDelete marks the element inactive. It reports whether a row was
	// actually deactivated.
	SoftDelete(ctx context.Context, ownerID, elementType, elementID string) (bool, error)
}
