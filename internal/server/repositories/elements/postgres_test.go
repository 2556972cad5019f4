package elements

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
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

var upsertQ = regexp.MustCompile(`INSERT INTO elements .* ON CONFLICT .* DO UPDATE SET .* RETURNING version, updated_at;`)

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(upsertQ.String()).
		WithArgs("u1", "text", "about-heading", []byte(`"hello"`), nil).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(4), now))

	e := &models.Element{
		OwnerID:     "u1",
		ElementType: "text",
		ElementID:   "about-heading",
		Value:       json.RawMessage(`"hello"`),
	}
	if err := repo.Upsert(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Version != 4 {
		t.Fatalf("want version 4, got %d", e.Version)
	}
	if !e.IsActive {
		t.Fatalf("upserted element must be active")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQ.String()).
		WithArgs("u1", "text", "a1", []byte(`"v"`), nil).
		WillReturnError(errors.New("db is down"))

	err := repo.Upsert(context.Background(), &models.Element{
		OwnerID: "u1", ElementType: "text", ElementID: "a1", Value: json.RawMessage(`"v"`),
	})
	if err == nil || !regexp.MustCompile(`db error: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_ReturnsRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"owner_id", "element_type", "element_id", "value", "metadata", "version", "is_active", "updated_at"}).
		AddRow("u1", "text", "a1", []byte(`"hi"`), nil, int64(2), true, now)

	mock.ExpectQuery(`SELECT .* FROM elements WHERE owner_id = \$1 AND element_type = \$2 AND element_id = \$3 AND is_active = TRUE`).
		WithArgs("u1", "text", "a1").
		WillReturnRows(rows)

	e, err := repo.Get(context.Background(), "u1", "text", "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Version != 2 || string(e.Value) != `"hi"` {
		t.Fatalf("unexpected element: %+v", e)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM elements`).
		WithArgs("u1", "text", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1", "text", "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestList_FiltersOptional(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"owner_id", "element_type", "element_id", "value", "metadata", "version", "is_active", "updated_at"}).
		AddRow("u1", "text", "a1", []byte(`"x"`), nil, int64(1), true, now).
		AddRow("u1", "image", "hero", []byte(`{"url":"a.jpg"}`), []byte(`{"w":800}`), int64(5), true, now)

	mock.ExpectQuery(`SELECT .* FROM elements WHERE owner_id = \$1 AND is_active = TRUE`).
		WithArgs("u1", "", "").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), "u1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 elements, got %d", len(list))
	}
	if list[1].Key() != "image:hero" {
		t.Fatalf("unexpected key: %s", list[1].Key())
	}
}

func TestSoftDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE elements SET is_active = FALSE`).
		WithArgs("u1", "project", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SoftDelete(context.Background(), "u1", "project", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a row to be deactivated")
	}

	mock.ExpectExec(`UPDATE elements SET is_active = FALSE`).
		WithArgs("u1", "project", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.SoftDelete(context.Background(), "u1", "project", "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("no row should be deactivated for a missing element")
	}
}
