package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestAppend(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("a1", "u1", "text", "t1", models.ActionUpsert, nil, []byte(`"new"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), &models.AuditRecord{
		ID: "a1", OwnerID: "u1", ElementType: "text", ElementID: "t1",
		Action: models.ActionUpsert, NewValue: json.RawMessage(`"new"`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListRecent_DefaultLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "element_type", "element_id", "action", "old_value", "new_value", "created_at"}).
		AddRow("a2", "u1", "text", "t1", models.ActionDelete, []byte(`"old"`), nil, now).
		AddRow("a1", "u1", "text", "t1", models.ActionUpsert, nil, []byte(`"old"`), now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .* FROM audit_log WHERE owner_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("u1", DefaultListLimit).
		WillReturnRows(rows)

	recs, err := repo.ListRecent(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	if recs[0].Action != models.ActionDelete {
		t.Fatalf("newest record must come first, got %s", recs[0].Action)
	}
}
