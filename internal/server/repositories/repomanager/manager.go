package repomanager

import (
	"context"
	"database/sql"

	"github.com/foliosync/foliosync/internal/dbx"
	"github.com/foliosync/foliosync/internal/server/repositories/audit"
	"github.com/foliosync/foliosync/internal/server/repositories/elements"
	"github.com/foliosync/foliosync/internal/server/repositories/refreshtokens"
	"github.com/foliosync/foliosync/internal/server/repositories/shares"
	"github.com/foliosync/foliosync/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so services can
// run several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Elements(db dbx.DBTX) elements.Repository
	Shares(db dbx.DBTX) shares.Repository
	Audit(db dbx.DBTX) audit.Repository
}
