// Package elements provides the PostgreSQL-backed repository for
// owner-scoped portfolio elements.
package elements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/models"
)

// PostgresRepository implements element storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or updates an element by identity. The version counter is
// incremented and updated_at refreshed in the same statement, so concurrent
// writers to the same key are ordered by the database.
func (r *PostgresRepository) Upsert(ctx context.Context, e *models.Element) error {
	query := `
		INSERT INTO elements (owner_id, element_type, element_id, value, metadata, version, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, TRUE, now())
		ON CONFLICT (owner_id, element_type, element_id)
		DO UPDATE SET
			value = EXCLUDED.value,
			metadata = EXCLUDED.metadata,
			version = elements.version + 1,
			is_active = TRUE,
			updated_at = now()
		RETURNING version, updated_at;
	`
	err := r.db.QueryRowContext(ctx, query,
		e.OwnerID, e.ElementType, e.ElementID, []byte(e.Value), nullableJSON(e.Metadata)).
		Scan(&e.Version, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	e.IsActive = true
	return nil
}

// Get returns the active element for the identity, or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, elementType, elementID string) (*models.Element, error) {
	query := `
		SELECT owner_id, element_type, element_id, value, metadata, version, is_active, updated_at
		FROM elements
		WHERE owner_id = $1 AND element_type = $2 AND element_id = $3 AND is_active = TRUE
	`
	e, err := scanElement(r.db.QueryRowContext(ctx, query, ownerID, elementType, elementID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// List returns active elements for the owner, optionally filtered by type
// and id. Omitted filters mean "all rows for this owner".
func (r *PostgresRepository) List(ctx context.Context, ownerID, elementType, elementID string) ([]*models.Element, error) {
	query := `
		SELECT owner_id, element_type, element_id, value, metadata, version, is_active, updated_at
		FROM elements
		WHERE owner_id = $1 AND is_active = TRUE
			AND ($2 = '' OR element_type = $2)
			AND ($3 = '' OR element_id = $3)
		ORDER BY element_type, element_id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, elementType, elementID)
	if err != nil {
		return nil, fmt.Errorf("failed to select elements: %w", err)
	}
	defer rows.Close()

	var result []*models.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete marks the element inactive rather than removing the row, so the
// value stays recoverable.
func (r *PostgresRepository) SoftDelete(ctx context.Context, ownerID, elementType, elementID string) (bool, error) {
	query := `
		UPDATE elements
		SET is_active = FALSE, updated_at = now()
		WHERE owner_id = $1 AND element_type = $2 AND element_id = $3 AND is_active = TRUE
	`
	res, err := r.db.ExecContext(ctx, query, ownerID, elementType, elementID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(row rowScanner) (*models.Element, error) {
	var e models.Element
	var value, metadata []byte
	if err := row.Scan(
		&e.OwnerID, &e.ElementType, &e.ElementID, &value, &metadata,
		&e.Version, &e.IsActive, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Value = value
	e.Metadata = metadata
	return &e, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
