package principals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	query :=
		`INSERT INTO principals (id, email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Email, p.Name, p.PasswordHash, string(p.Role)).Scan(&p.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	query :=
		`SELECT id, email, name, password_hash, role, created_at FROM principals
		 WHERE email = $1`

	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	query :=
		`SELECT id, email, name, password_hash, role, created_at FROM principals
		 WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Principal, error) {
	p := &models.Principal{}
	var role string

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.Role = models.Role(role)
	return p, nil
}
