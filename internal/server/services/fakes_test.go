package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/principals"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/revokedtokens"
)

type fakePrincipals struct {
	mu      sync.Mutex
	byEmail map[string]*models.Principal
	err     error
}

func newFakePrincipals() *fakePrincipals {
	return &fakePrincipals{byEmail: map[string]*models.Principal{}}
}

func (f *fakePrincipals) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byEmail[p.Email]; ok {
		return nil, common.ErrAlreadyExists
	}
	cp := *p
	cp.CreatedAt = time.Now()
	f.byEmail[p.Email] = &cp
	return &cp, nil
}

func (f *fakePrincipals) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrincipals) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byEmail {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	p *fakePrincipals
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Principals(db dbx.DBTX) principals.Repository       { return m.p }
func (m *fakeRepoManager) RevokedTokens(db dbx.DBTX) revokedtokens.Repository { return nil }

type failingList struct{ err error }

func (f failingList) Revoke(context.Context, string, time.Time) error { return f.err }
func (f failingList) IsRevoked(context.Context, string) (bool, error) { return false, f.err }
