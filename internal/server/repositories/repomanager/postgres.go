// Package repomanager wires the PostgreSQL repositories together and runs
// embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/server/migrations"
	"github.com/foliosync/foliosync/internal/server/repositories/audit"
	"github.com/foliosync/foliosync/internal/server/repositories/elements"
	"github.com/foliosync/foliosync/internal/server/repositories/refreshtokens"
	"github.com/foliosync/foliosync/internal/server/repositories/shares"
	"github.com/foliosync/foliosync/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Elements(db dbx.DBTX) elements.Repository {
	return elements.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
