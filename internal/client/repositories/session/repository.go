// Package session persists the CLI's login between runs in the local
// SQLite metadata table.
package session

import (
	"context"

	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
)

type Repository interface {
	// Save replaces the stored session.
	Save(ctx context.Context, s *models.Session) error
	// Load returns the stored session, or nil when there is none.
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}
