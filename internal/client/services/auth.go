// Package services contains application services for the VolunteerHub CLI.
// AuthService keeps the local session in step with the server.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/volunteerhub/internal/client/client"
	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
	"github.com/dmitrijs2005/volunteerhub/internal/client/repositories/session"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, name, userType string) error
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	// Logout revokes the stored token on the server and forgets it locally.
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*models.Identity, error)
	// Current returns the stored session, or nil.
	Current(ctx context.Context) (*models.Session, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) sessions(db dbx.DBTX) session.Repository {
	return session.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, name, userType string) error {
	return a.client.Register(ctx, email, password, name, userType)
}

// Login authenticates and stores the session, replacing any previous one.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.sessions(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.Save(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *authService) Current(ctx context.Context) (*models.Session, error) {
	return a.sessions(a.db).Load(ctx)
}

func (a *authService) token(ctx context.Context) (string, error) {
	s, err := a.Current(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", client.ErrNotLoggedIn
	}
	return s.Token, nil
}

// Logout keeps the session when the server cannot be reached, so the user can
// retry. A token the server no longer accepts is dropped locally.
func (a *authService) Logout(ctx context.Context) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	err = a.client.Logout(ctx, token)
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}

	if clearErr := a.sessions(a.db).Clear(ctx); clearErr != nil {
		return clearErr
	}
	return err
}

// WhoAmI asks the server to decode the stored token. A rejected token is
// dropped locally.
func (a *authService) WhoAmI(ctx context.Context) (*models.Identity, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	id, err := a.client.Me(ctx, token)
	if errors.Is(err, client.ErrUnauthorized) {
		if clearErr := a.sessions(a.db).Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
	}
	return id, err
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases the local database.
func (a *authService) Close(ctx context.Context) error {
	return a.db.Close()
}
