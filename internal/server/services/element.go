// Package services implements the server-side application logic on top of
// the repositories: element upserts with audit records, best-effort backup
// on delete, share-link lifecycle, and user accounts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ChangeNotifier receives a notification for every committed element
// mutation. The realtime hub implements it; a nil notifier disables push.
type ChangeNotifier interface {
	Notify(ownerID string, n *models.ChangeNotification)
}

// ElementBackup copies an element snapshot to secondary storage before a
// delete. The S3 BackupStore implements it.
type ElementBackup interface {
	PutElement(ctx context.Context, e *models.Element) (string, error)
}

// BulkResult reports the outcome of a bulk upsert. The batch is not
// transactional: SavedCount below the request size means partial success.
type BulkResult struct {
	SavedCount int      `json:"saved_count"`
	Errors     []string `json:"errors"`
}

// ElementService owns element reads, writes, deletes and the audit trail.
type ElementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	backup      ElementBackup
	notifier    ChangeNotifier
	logger      logging.Logger
}

// NewElementService wires the service. backup and notifier may be nil to
// disable the corresponding side effects.
func NewElementService(db *sql.DB, rm repomanager.RepositoryManager, backup ElementBackup, notifier ChangeNotifier, logger logging.Logger) *ElementService {
	return &ElementService{
		db:          db,
		repomanager: rm,
		backup:      backup,
		notifier:    notifier,
		logger:      logger.With("module", "element_service"),
	}
}

// Upsert writes one element and appends an audit record in the same
// transaction, then notifies realtime subscribers.
func (s *ElementService) Upsert(ctx context.Context, ownerID string, upd *models.ElementUpdate) (*models.Element, error) {

	elementRepo := s.repomanager.Elements(s.db)

	var oldValue []byte
	old, err := elementRepo.Get(ctx, ownerID, upd.ElementType, upd.ElementID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error reading element: %w", err)
	}
	if old != nil {
		oldValue = old.Value
	}

	e := &models.Element{
		OwnerID:     ownerID,
		ElementType: upd.ElementType,
		ElementID:   upd.ElementID,
		Value:       upd.Value,
		Metadata:    upd.Metadata,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Elements(tx).Upsert(ctx, e); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditRecord{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			ElementType: e.ElementType,
			ElementID:   e.ElementID,
			Action:      models.ActionUpsert,
			OldValue:    oldValue,
			NewValue:    e.Value,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error saving element: %w", err)
	}

	s.notify(ownerID, &models.ChangeNotification{
		ElementType: e.ElementType,
		ElementID:   e.ElementID,
		Action:      models.ActionUpsert,
		Data:        e.Value,
		Timestamp:   e.UpdatedAt,
	})

	return e, nil
}

// BulkUpsert applies updates one by one. There is no atomicity across the
// batch; callers must treat SavedCount < len(updates) as partial success.
func (s *ElementService) BulkUpsert(ctx context.Context, ownerID string, updates []*models.ElementUpdate) *BulkResult {
	result := &BulkResult{Errors: []string{}}

	for _, upd := range updates {
		if _, err := s.Upsert(ctx, ownerID, upd); err != nil {
			s.logger.Error(ctx, "bulk item failed", "element", upd.ElementType+":"+upd.ElementID, "error", err.Error())
			result.Errors = append(result.Errors, fmt.Sprintf("%s:%s: %v", upd.ElementType, upd.ElementID, err))
			continue
		}
		result.SavedCount++
	}

	return result
}

// Get returns the active element, or common.ErrorNotFound.
func (s *ElementService) Get(ctx context.Context, ownerID, elementType, elementID string) (*models.Element, error) {
	return s.repomanager.Elements(s.db).Get(ctx, ownerID, elementType, elementID)
}

// List returns active elements for the owner; empty filters mean "all".
func (s *ElementService) List(ctx context.Context, ownerID, elementType, elementID string) ([]*models.Element, error) {
	return s.repomanager.Elements(s.db).List(ctx, ownerID, elementType, elementID)
}

// Delete soft-deletes an element. The prior value is copied to the backup
// store first, best-effort: a failed backup is logged but does not block
// the delete. It reports whether anything was deleted.
func (s *ElementService) Delete(ctx context.Context, ownerID, elementType, elementID string) (bool, error) {

	elementRepo := s.repomanager.Elements(s.db)

	old, err := elementRepo.Get(ctx, ownerID, elementType, elementID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error reading element: %w", err)
	}

	if s.backup != nil {
		if _, err := s.backup.PutElement(ctx, old); err != nil {
			s.logger.Warn(ctx, "backup before delete failed", "element", old.Key(), "error", err.Error())
		}
	}

	var deleted bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err = s.repomanager.Elements(tx).SoftDelete(ctx, ownerID, elementType, elementID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditRecord{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			ElementType: elementType,
			ElementID:   elementID,
			Action:      models.ActionDelete,
			OldValue:    old.Value,
		})
	})
	if err != nil {
		return false, fmt.Errorf("error deleting element: %w", err)
	}

	if deleted {
		s.notify(ownerID, &models.ChangeNotification{
			ElementType: elementType,
			ElementID:   elementID,
			Action:      models.ActionDelete,
			Timestamp:   time.Now(),
		})
	}

	return deleted, nil
}

// AuditLog returns up to limit recent mutation records for the owner.
func (s *ElementService) AuditLog(ctx context.Context, ownerID string, limit int) ([]*models.AuditRecord, error) {
	return s.repomanager.Audit(s.db).ListRecent(ctx, ownerID, limit)
}

func (s *ElementService) notify(ownerID string, n *models.ChangeNotification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ownerID, n)
}
