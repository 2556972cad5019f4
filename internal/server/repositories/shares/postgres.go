// Package shares provides the PostgreSQL-backed repository for share links.
package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/models"
)

// PostgresRepository implements share-link storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new share link row.
func (r *PostgresRepository) Create(ctx context.Context, s *models.ShareLink) error {
	query := `
		INSERT INTO shares (id, owner_id, element_type, element_id, permissions, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.OwnerID, s.ElementType, s.ElementID,
		strings.Join(s.Permissions, ","), s.ExpiresAt).
		Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	s.IsActive = true
	return nil
}

// GetByID returns a share link by id, whether active, revoked or expired.
// Validity decisions belong to the service layer.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	query := `
		SELECT id, owner_id, element_type, element_id, permissions, expires_at, is_active, access_count, created_at
		FROM shares
		WHERE id = $1
	`
	s := &models.ShareLink{}
	var permissions string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.OwnerID, &s.ElementType, &s.ElementID,
		&permissions, &s.ExpiresAt, &s.IsActive, &s.AccessCount, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if permissions != "" {
		s.Permissions = strings.Split(permissions, ",")
	}
	return s, nil
}

// IncrementAccess bumps the access counter.
func (r *PostgresRepository) IncrementAccess(ctx context.Context, id string) error {
	query := `
		UPDATE shares SET access_count = access_count + 1 WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Revoke deactivates a link; only the owner's links are affected.
func (r *PostgresRepository) Revoke(ctx context.Context, ownerID, id string) (bool, error) {
	query := `
		UPDATE shares SET is_active = FALSE WHERE id = $1 AND owner_id = $2 AND is_active = TRUE
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}
