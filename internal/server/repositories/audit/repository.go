package audit

import (
	"context"

	"github.com/foliosync/foliosync/internal/models"
)

// Repository is the server-side contract for the mutation log.
type Repository interface {
	// Append stores one audit record.
	Append(ctx context.Context, rec *models.AuditRecord) error

	// ListRecent returns up to limit records for the owner, newest first.
	ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.AuditRecord, error)
}
