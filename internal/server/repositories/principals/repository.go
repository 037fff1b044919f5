// Package principals declares the credential store: the accounts that can
// log in, keyed by id and by normalized email.
package principals

import (
	"context"

	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
)

// Repository persists principals.
type Repository interface {
	// Create inserts p. A duplicate email yields common.ErrAlreadyExists.
	Create(ctx context.Context, p *models.Principal) (*models.Principal, error)

	// GetByEmail returns common.ErrorNotFound when no principal has email.
	GetByEmail(ctx context.Context, email string) (*models.Principal, error)

	// GetByID returns common.ErrorNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*models.Principal, error)
}
