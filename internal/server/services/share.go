package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/logging"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/server/repositories/repomanager"
)

// DefaultShareTTL applies when a share is created without an explicit
// lifetime.
const DefaultShareTTL = 7 * 24 * time.Hour

// ShareService owns share-link lifecycle: creation, validity checks, access
// recording and revocation. Checking validity and recording an access are
// deliberately separate operations; only the true point of content access
// performs both.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewShareService wires the service.
func NewShareService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *ShareService {
	return &ShareService{
		db:          db,
		repomanager: rm,
		logger:      logger.With("module", "share_service"),
	}
}

// Create issues a new share link for one element. ttl <= 0 selects
// DefaultShareTTL. The id is unguessable: the link itself is the capability.
func (s *ShareService) Create(ctx context.Context, ownerID, elementType, elementID string, permissions []string, ttl time.Duration) (*models.ShareLink, error) {

	// the shared element must exist
	if _, err := s.repomanager.Elements(s.db).Get(ctx, ownerID, elementType, elementID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading element: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultShareTTL
	}
	if len(permissions) == 0 {
		permissions = []string{"read"}
	}

	id, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("error generating share id: %w", err)
	}

	link := &models.ShareLink{
		ID:          id,
		OwnerID:     ownerID,
		ElementType: elementType,
		ElementID:   elementID,
		Permissions: permissions,
		ExpiresAt:   time.Now().Add(ttl),
	}

	if err := s.repomanager.Shares(s.db).Create(ctx, link); err != nil {
		return nil, fmt.Errorf("error creating share: %w", err)
	}

	return link, nil
}

// Validate is the pure validity check: the link exists, is active, and has
// not expired (expiry at exactly ExpiresAt counts as expired). No side
// effects. Returns the link on success; ErrShareRevoked / ErrShareExpired /
// ErrorNotFound otherwise.
func (s *ShareService) Validate(ctx context.Context, shareID string) (*models.ShareLink, error) {

	link, err := s.repomanager.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}

	if !link.IsActive {
		return nil, common.ErrShareRevoked
	}
	if !time.Now().Before(link.ExpiresAt) {
		return nil, common.ErrShareExpired
	}

	return link, nil
}

// RecordAccess bumps the access counter. Call it only when shared content
// is actually served.
func (s *ShareService) RecordAccess(ctx context.Context, shareID string) error {
	return s.repomanager.Shares(s.db).IncrementAccess(ctx, shareID)
}

// Resolve validates the link, records the access, and returns the shared
// element read-only. This is the single place where the check and the
// counter increment happen together.
func (s *ShareService) Resolve(ctx context.Context, shareID string) (*models.ShareLink, *models.Element, error) {

	link, err := s.Validate(ctx, shareID)
	if err != nil {
		return nil, nil, err
	}

	element, err := s.repomanager.Elements(s.db).Get(ctx, link.OwnerID, link.ElementType, link.ElementID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.RecordAccess(ctx, shareID); err != nil {
		// access counting is best-effort; content is still served
		s.logger.Warn(ctx, "failed to record share access", "share", shareID, "error", err.Error())
	}

	// hide the owner from anonymous visitors
	shared := *element
	shared.OwnerID = ""

	return link, &shared, nil
}

// Revoke deactivates a link owned by ownerID.
func (s *ShareService) Revoke(ctx context.Context, ownerID, shareID string) (bool, error) {
	return s.repomanager.Shares(s.db).Revoke(ctx, ownerID, shareID)
}
