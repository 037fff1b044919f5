package client

import (
	"context"

	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
)

// Client is the server API as the CLI sees it.
type Client interface {
	Register(ctx context.Context, email string, password []byte, name, userType string) error
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*models.Identity, error)
	Ping(ctx context.Context) error
}
