package principals

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ     = `(?s)^INSERT\s+INTO\s+principals\s*\(id,\s*email,\s*name,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+created_at$`
	selectEmail = `(?s)^SELECT\s+id,\s*email,\s*name,\s*password_hash,\s*role,\s*created_at\s+FROM\s+principals\s+WHERE\s+email\s*=\s*\$1$`
	selectID    = `(?s)^SELECT\s+id,\s*email,\s*name,\s*password_hash,\s*role,\s*created_at\s+FROM\s+principals\s+WHERE\s+id\s*=\s*\$1$`
)

var principalCols = []string{"id", "email", "name", "password_hash", "role", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func samplePrincipal() *models.Principal {
	return &models.Principal{
		ID:           "9b2e5f0c-8a4b-4d6e-9c1a-2f3b4c5d6e7f",
		Email:        "a@b.com",
		Name:         "Ann",
		PasswordHash: "$argon2id$hash",
		Role:         models.RoleVolunteer,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p := samplePrincipal()

	mock.ExpectQuery(insertQ).
		WithArgs(p.ID, p.Email, p.Name, p.PasswordHash, "volunteer").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, p.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := samplePrincipal()

	mock.ExpectQuery(insertQ).
		WithArgs(p.ID, p.Email, p.Name, p.PasswordHash, "volunteer").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "principals_email_key"})

	_, err := repo.Create(context.Background(), p)
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := samplePrincipal()

	mock.ExpectQuery(insertQ).
		WithArgs(p.ID, p.Email, p.Name, p.PasswordHash, "volunteer").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), p)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.NotErrorIs(t, err, common.ErrAlreadyExists)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectEmail).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(principalCols).
			AddRow("u1", "a@b.com", "Ann", "$argon2id$hash", "volunteer", created))

	got, err := repo.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, &models.Principal{
		ID: "u1", Email: "a@b.com", Name: "Ann", PasswordHash: "$argon2id$hash",
		Role: models.RoleVolunteer, CreatedAt: created,
	}, got)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectEmail).WithArgs("ghost@b.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Now().UTC()

	mock.ExpectQuery(selectID).
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows(principalCols).
			AddRow("n1", "org@b.com", "Helping Hands", "h", "ngo", created))
	mock.ExpectQuery(selectID).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectID).WithArgs("boom").WillReturnError(errors.New("conn reset"))

	got, err := repo.GetByID(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNGO, got.Role)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetByID(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
