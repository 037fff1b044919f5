package client

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/volunteerhub/internal/client/migrations"
	"github.com/dmitrijs2005/volunteerhub/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Migrate brings the session schema up to date and returns the resulting
// schema version.
func Migrate(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("migrate session db: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

// sessionDSN waits on a locked file instead of failing, which happens when
// two CLI processes share a data directory.
func sessionDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// OpenSessionDB opens (creating if needed) the SQLite file at path, restricts
// it to the owner, and migrates it.
func OpenSessionDB(ctx context.Context, path string) (*sql.DB, error) {
	if err := filex.RestrictFile(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", sessionDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
