package shares

import (
	"context"

	"github.com/foliosync/foliosync/internal/models"
)

// Repository is the server-side contract for share-link persistence.
type Repository interface {
	// Create stores a new share link.
	Create(ctx context.Context, s *models.ShareLink) error

	// GetByID returns the share link, active or not, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.ShareLink, error)

	// IncrementAccess bumps the access counter for a link.
	IncrementAccess(ctx context.Context, id string) error

	// Revoke deactivates a link owned by ownerID. It reports whether a row
	// was actually revoked.
	Revoke(ctx context.Context, ownerID, id string) (bool, error)
}
