package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/models"
	"github.com/foliosync/foliosync/internal/server/repositories/shares"
)

type fakeSharesRepo struct {
	shares.Repository

	byID map[string]*models.ShareLink

	created      []*models.ShareLink
	accessCounts map[string]int
	accessErr    error

	revoked   []string
	revokeOK  bool
	revokeErr error
}

func newFakeSharesRepo() *fakeSharesRepo {
	return &fakeSharesRepo{byID: map[string]*models.ShareLink{}, accessCounts: map[string]int{}}
}

func (f *fakeSharesRepo) Create(ctx context.Context, s *models.ShareLink) error {
	s.IsActive = true
	s.CreatedAt = time.Now()
	f.created = append(f.created, s)
	f.byID[s.ID] = s
	return nil
}

func (f *fakeSharesRepo) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSharesRepo) IncrementAccess(ctx context.Context, id string) error {
	if f.accessErr != nil {
		return f.accessErr
	}
	f.accessCounts[id]++
	return nil
}

func (f *fakeSharesRepo) Revoke(ctx context.Context, ownerID, id string) (bool, error) {
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	f.revoked = append(f.revoked, id)
	return f.revokeOK, nil
}

func newShareFixture(t *testing.T) (*ShareService, *fakeRepoManager) {
	t.Helper()
	rm := &fakeRepoManager{
		e: &fakeElementsRepo{byKey: map[string]*models.Element{
			"text:bio": {OwnerID: "u1", ElementType: "text", ElementID: "bio", Value: json.RawMessage(`"hi"`), IsActive: true},
		}},
		s: newFakeSharesRepo(),
	}
	return NewShareService(nil, rm, testLogger()), rm
}

func TestShareCreate_Defaults(t *testing.T) {
	svc, rm := newShareFixture(t)

	link, err := svc.Create(context.Background(), "u1", "text", "bio", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(link.ID) != 32 {
		t.Fatalf("share id must be 16 random bytes hex-encoded, got %q", link.ID)
	}
	if len(link.Permissions) != 1 || link.Permissions[0] != "read" {
		t.Fatalf("default permissions must be read-only, got %v", link.Permissions)
	}
	remaining := time.Until(link.ExpiresAt)
	if remaining < DefaultShareTTL-time.Minute || remaining > DefaultShareTTL {
		t.Fatalf("default TTL not applied, expires in %v", remaining)
	}
	if len(rm.s.created) != 1 {
		t.Fatalf("link must be persisted")
	}
}

func TestShareCreate_MissingElement(t *testing.T) {
	svc, _ := newShareFixture(t)

	_, err := svc.Create(context.Background(), "u1", "text", "nope", nil, time.Hour)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestShareValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		link    *models.ShareLink
		wantErr error
	}{
		{
			name:    "valid",
			link:    &models.ShareLink{ID: "s1", IsActive: true, ExpiresAt: now.Add(time.Hour)},
			wantErr: nil,
		},
		{
			name:    "revoked",
			link:    &models.ShareLink{ID: "s1", IsActive: false, ExpiresAt: now.Add(time.Hour)},
			wantErr: common.ErrShareRevoked,
		},
		{
			name:    "expired",
			link:    &models.ShareLink{ID: "s1", IsActive: true, ExpiresAt: now.Add(-time.Second)},
			wantErr: common.ErrShareExpired,
		},
		{
			name:    "missing",
			link:    nil,
			wantErr: common.ErrorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := &fakeRepoManager{s: newFakeSharesRepo()}
			if tt.link != nil {
				rm.s.byID[tt.link.ID] = tt.link
			}
			svc := NewShareService(nil, rm, testLogger())

			_, err := svc.Validate(context.Background(), "s1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if len(rm.s.accessCounts) != 0 {
				t.Fatalf("Validate must not record an access")
			}
		})
	}
}

func TestShareValidate_ExpiryBoundary(t *testing.T) {
	// a link whose ExpiresAt has just passed is expired, not valid
	rm := &fakeRepoManager{s: newFakeSharesRepo()}
	rm.s.byID["s1"] = &models.ShareLink{ID: "s1", IsActive: true, ExpiresAt: time.Now()}
	svc := NewShareService(nil, rm, testLogger())

	_, err := svc.Validate(context.Background(), "s1")
	if !errors.Is(err, common.ErrShareExpired) {
		t.Fatalf("expected ErrShareExpired at the boundary, got %v", err)
	}
}

func TestShareResolve_RecordsAccessAndHidesOwner(t *testing.T) {
	svc, rm := newShareFixture(t)
	rm.s.byID["s1"] = &models.ShareLink{
		ID: "s1", OwnerID: "u1", ElementType: "text", ElementID: "bio",
		IsActive: true, ExpiresAt: time.Now().Add(time.Hour),
	}

	link, element, err := svc.Resolve(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ID != "s1" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if element.OwnerID != "" {
		t.Fatalf("resolved element must not expose the owner")
	}
	if string(element.Value) != `"hi"` {
		t.Fatalf("unexpected element value: %s", element.Value)
	}
	if rm.s.accessCounts["s1"] != 1 {
		t.Fatalf("resolve must record exactly one access, got %d", rm.s.accessCounts["s1"])
	}
}

func TestShareResolve_AccessCountBestEffort(t *testing.T) {
	svc, rm := newShareFixture(t)
	rm.s.byID["s1"] = &models.ShareLink{
		ID: "s1", OwnerID: "u1", ElementType: "text", ElementID: "bio",
		IsActive: true, ExpiresAt: time.Now().Add(time.Hour),
	}
	rm.s.accessErr = errors.New("counter table locked")

	_, element, err := svc.Resolve(context.Background(), "s1")
	if err != nil {
		t.Fatalf("content must still be served when counting fails: %v", err)
	}
	if element == nil {
		t.Fatalf("expected element")
	}
}

func TestShareResolve_RevokedServesNothing(t *testing.T) {
	svc, rm := newShareFixture(t)
	rm.s.byID["s1"] = &models.ShareLink{
		ID: "s1", OwnerID: "u1", ElementType: "text", ElementID: "bio",
		IsActive: false, ExpiresAt: time.Now().Add(time.Hour),
	}

	_, _, err := svc.Resolve(context.Background(), "s1")
	if !errors.Is(err, common.ErrShareRevoked) {
		t.Fatalf("expected ErrShareRevoked, got %v", err)
	}
	if rm.s.accessCounts["s1"] != 0 {
		t.Fatalf("invalid share must not count an access")
	}
}

func TestShareRevoke(t *testing.T) {
	svc, rm := newShareFixture(t)
	rm.s.revokeOK = true

	ok, err := svc.Revoke(context.Background(), "u1", "s1")
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if len(rm.s.revoked) != 1 || rm.s.revoked[0] != "s1" {
		t.Fatalf("revoke not forwarded, got %v", rm.s.revoked)
	}
}
