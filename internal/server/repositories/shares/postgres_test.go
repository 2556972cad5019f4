package shares

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/foliosync/foliosync/internal/common"
	"github.com/foliosync/foliosync/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(48 * time.Hour)
	mock.ExpectQuery(`INSERT INTO shares .* RETURNING created_at`).
		WithArgs("sh1", "u1", "project", "p1", "read", expires).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	s := &models.ShareLink{
		ID: "sh1", OwnerID: "u1", ElementType: "project", ElementID: "p1",
		Permissions: []string{"read"}, ExpiresAt: expires,
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsActive {
		t.Fatalf("created share must be active")
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "element_type", "element_id", "permissions", "expires_at", "is_active", "access_count", "created_at"}).
		AddRow("sh1", "u1", "project", "p1", "read,comment", now.Add(time.Hour), true, int64(7), now)

	mock.ExpectQuery(`SELECT .* FROM shares WHERE id = \$1`).
		WithArgs("sh1").
		WillReturnRows(rows)

	s, err := repo.GetByID(context.Background(), "sh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Permissions) != 2 || s.Permissions[1] != "comment" {
		t.Fatalf("unexpected permissions: %v", s.Permissions)
	}
	if s.AccessCount != 7 {
		t.Fatalf("unexpected access count: %d", s.AccessCount)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM shares`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestIncrementAccess(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE shares SET access_count = access_count \+ 1`).
		WithArgs("sh1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.IncrementAccess(context.Background(), "sh1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE shares SET is_active = FALSE`).
		WithArgs("sh1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Revoke(context.Background(), "u1", "sh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected revoke to affect a row")
	}

	mock.ExpectExec(`UPDATE shares SET is_active = FALSE`).
		WithArgs("sh1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.Revoke(context.Background(), "intruder", "sh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("revoking another owner's share must not affect rows")
	}
}
