// Package audit provides the PostgreSQL-backed repository for the
// element mutation log.
package audit

import (
	"context"
	"fmt"

	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/models"
)

// DefaultListLimit bounds audit reads when the caller does not set one.
const DefaultListLimit = 100

// PostgresRepository implements audit storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append stores one audit record.
func (r *PostgresRepository) Append(ctx context.Context, rec *models.AuditRecord) error {
	query := `
		INSERT INTO audit_log (id, owner_id, element_type, element_id, action, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.ElementType, rec.ElementID, rec.Action,
		nullableJSON(rec.OldValue), nullableJSON(rec.NewValue))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records for the owner, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, owner_id, element_type, element_id, action, old_value, new_value, created_at
		FROM audit_log
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit records: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var oldValue, newValue []byte
		if err := rows.Scan(
			&rec.ID, &rec.OwnerID, &rec.ElementType, &rec.ElementID,
			&rec.Action, &oldValue, &newValue, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.OldValue = oldValue
		rec.NewValue = newValue
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
