package httpapi

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

type memPrincipals struct {
	mu   sync.Mutex
	rows []*models.Principal
}

func (m *memPrincipals) Create(_ context.Context, p *models.Principal) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == p.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	cp := *p
	cp.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, &cp)
	out := cp
	return &out, nil
}

func (m *memPrincipals) find(match func(*models.Principal) bool) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	return m.find(func(p *models.Principal) bool { return p.Email == email })
}

func (m *memPrincipals) GetByID(_ context.Context, id string) (*models.Principal, error) {
	return m.find(func(p *models.Principal) bool { return p.ID == id })
}

type memRepoManager struct {
	p *memPrincipals
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *memRepoManager) Principals(dbx.DBTX) principals.Repository       { return m.p }
func (m *memRepoManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository { return nil }
