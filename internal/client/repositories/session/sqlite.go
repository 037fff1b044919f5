package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
)

// Metadata keys. The token key doubles as the "session present" marker.
const (
	keyToken    = "session.token"
	keyUserID   = "session.user_id"
	keyEmail    = "session.email"
	keyName     = "session.name"
	keyUserType = "session.user_type"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, []byte(value))
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return string(value), true, nil
}

// Save writes every field. Callers wanting atomicity pass a *sql.Tx.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	fields := []struct{ key, value string }{
		{keyUserID, s.UserID},
		{keyEmail, s.Email},
		{keyName, s.Name},
		{keyUserType, s.UserType},
		{keyToken, s.Token},
	}
	for _, f := range fields {
		if err := r.set(ctx, f.key, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	token, ok, err := r.get(ctx, keyToken)
	if err != nil || !ok || token == "" {
		return nil, err
	}

	s := &models.Session{Token: token}
	for key, dst := range map[string]*string{
		keyUserID:   &s.UserID,
		keyEmail:    &s.Email,
		keyName:     &s.Name,
		keyUserType: &s.UserType,
	} {
		v, _, err := r.get(ctx, key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return s, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key LIKE 'session.%'`)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
