package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/principals"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/revokedtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can hand
// the same *sql.Tx to several of them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Principals(db dbx.DBTX) principals.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
}
