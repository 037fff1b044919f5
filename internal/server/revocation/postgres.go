package revocation

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/revokedtokens"
)

// RepoFactory binds a revokedtokens.Repository to a DBTX.
type RepoFactory func(db dbx.DBTX) revokedtokens.Repository

// Postgres keeps revocations in the revoked_tokens table, shared by every
// server instance using the same database.
type Postgres struct {
	db   *sql.DB
	repo RepoFactory
	now  func() time.Time
}

func NewPostgres(db *sql.DB, repo RepoFactory, opts ...Option) *Postgres {
	o := buildOptions(opts)
	return &Postgres{db: db, repo: repo, now: o.now}
}

// Revoke inserts the fingerprint and purges expired rows in one transaction,
// which keeps the table bounded without a separate job.
func (p *Postgres) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	now := p.now()
	if !expiresAt.After(now) {
		return nil
	}
	hash := cryptox.HashToken(token)

	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := p.repo(tx)
		if _, err := repo.PurgeExpired(ctx, now); err != nil {
			return err
		}
		return repo.Insert(ctx, hash, expiresAt)
	})
}

func (p *Postgres) IsRevoked(ctx context.Context, token string) (bool, error) {
	return p.repo(p.db).Exists(ctx, cryptox.HashToken(token), p.now())
}

// Purge deletes expired rows outside of a revocation, for deployments where
// logouts are rare.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	return p.repo(p.db).PurgeExpired(ctx, p.now())
}
