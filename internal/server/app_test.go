package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
	"github.com/dmitrijs2005/volunteerhub/internal/dbx"
	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/config"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/observability"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/principals"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/volunteerhub/internal/server/revocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPrincipals struct {
	mu   sync.Mutex
	rows map[string]*models.Principal
}

func (m *memPrincipals) Create(_ context.Context, p *models.Principal) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.Email]; ok {
		return nil, common.ErrAlreadyExists
	}
	cp := *p
	m.rows[p.Email] = &cp
	return &cp, nil
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memPrincipals) GetByID(_ context.Context, id string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeManager struct {
	principals    *memPrincipals
	migrationsErr error
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error    { return f.migrationsErr }
func (f *fakeManager) Principals(dbx.DBTX) principals.Repository       { return f.principals }
func (f *fakeManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository { return nil }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	puts    int
}

func (s *memStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.objects[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (s *memStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	b, ok := s.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

type harness struct {
	mock    sqlmock.Sqlmock
	manager *fakeManager
	store   *memStore
}

// stubDeps replaces the database, repository manager and S3 seams for the
// duration of the test.
func stubDeps(t *testing.T) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	h := &harness{
		mock:    mock,
		manager: &fakeManager{principals: &memPrincipals{rows: map[string]*models.Principal{}}},
		store:   &memStore{objects: map[string][]byte{}},
	}

	origOpen, origManager, origS3 := openDB, newRepoManager, newS3Client
	t.Cleanup(func() { openDB, newRepoManager, newS3Client = origOpen, origManager, origS3 })

	openDB = func(context.Context, string) (*sql.DB, error) { return db, nil }
	newRepoManager = func() repomanager.RepositoryManager { return h.manager }
	newS3Client = func(context.Context, revocation.S3Settings) (revocation.ObjectStore, error) { return h.store, nil }

	return h
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "app-test-secret"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	return c
}

func (h *harness) seed(t *testing.T, id, email, password string, role models.Role) {
	t.Helper()
	hash, err := cryptox.HashPassword([]byte(password))
	require.NoError(t, err)
	_, err = h.manager.principals.Create(context.Background(), &models.Principal{
		ID: id, Email: email, Name: "Seeded", PasswordHash: hash, Role: role,
	})
	require.NoError(t, err)
}

func call(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := call(t, handler, http.MethodPost, "/auth/login", "", `{"email":"a@b.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	stubDeps(t)
	c := testConfig()
	c.SecretKey = ""

	_, err := NewApp(context.Background(), c, logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
}

func TestNewApp_MigrationFailureClosesDB(t *testing.T) {
	h := stubDeps(t)
	h.manager.migrationsErr = errors.New("boom")
	h.mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(), logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations")
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestApp_MemoryBackendLogoutRevokes(t *testing.T) {
	h := stubDeps(t)
	h.seed(t, "u1", "a@b.com", "secret", models.RoleVolunteer)

	app, err := NewApp(context.Background(), testConfig(), logging.Nop{})
	require.NoError(t, err)

	token := loginToken(t, app.Handler())
	assert.Equal(t, http.StatusOK, call(t, app.Handler(), http.MethodPost, "/auth/logout", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, app.Handler(), http.MethodGet, "/volunteers/me", token, "").Code)
	assert.Equal(t, 1, app.memory.Len())
}

func TestApp_RedisBackendStoresFingerprint(t *testing.T) {
	h := stubDeps(t)
	h.seed(t, "u1", "a@b.com", "secret", models.RoleVolunteer)
	mr := miniredis.RunT(t)

	c := testConfig()
	c.RevocationBackend = config.BackendRedis
	c.RedisURL = "redis://" + mr.Addr() + "/0"

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.redis.Close() })

	token := loginToken(t, app.Handler())
	require.Equal(t, http.StatusOK, call(t, app.Handler(), http.MethodPost, "/auth/logout", token, "").Code)

	assert.True(t, mr.Exists(revocation.DefaultRedisPrefix+cryptox.HashToken(token)))
	assert.Equal(t, http.StatusUnauthorized, call(t, app.Handler(), http.MethodGet, "/auth/me", token, "").Code)
}

func TestApp_RedisUnreachable(t *testing.T) {
	h := stubDeps(t)
	h.mock.ExpectClose()

	c := testConfig()
	c.RevocationBackend = config.BackendRedis
	c.RedisURL = "redis://127.0.0.1:1/0"

	_, err := NewApp(context.Background(), c, logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestApp_SnapshotRestoredAndSavedOnShutdown(t *testing.T) {
	h := stubDeps(t)

	c := testConfig()
	c.S3Bucket = "vh"

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	snap, err := json.Marshal(map[string]any{
		"entries": []revocation.Entry{{TokenHash: cryptox.HashToken("old-token"), ExpiresAt: expires}},
	})
	require.NoError(t, err)
	h.store.objects[c.S3SnapshotKey] = snap

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)
	require.Equal(t, 1, app.memory.Len())

	revoked, err := app.memory.IsRevoked(context.Background(), "old-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	h.mock.ExpectClose()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}

	h.store.mu.Lock()
	saved := h.store.objects[c.S3SnapshotKey]
	h.store.mu.Unlock()
	assert.Contains(t, string(saved), cryptox.HashToken("old-token"))
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestNewApp_SchedulesJanitorJobs(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, c *config.Config)
		want  int
	}{
		{name: "memory", want: 1},
		{name: "memory with snapshot", setup: func(t *testing.T, c *config.Config) { c.S3Bucket = "vh" }, want: 2},
		{name: "postgres", setup: func(t *testing.T, c *config.Config) { c.RevocationBackend = config.BackendPostgres }, want: 1},
		{name: "redis expires by ttl", setup: func(t *testing.T, c *config.Config) {
			c.RevocationBackend = config.BackendRedis
			c.RedisURL = "redis://" + miniredis.RunT(t).Addr() + "/0"
		}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubDeps(t)
			c := testConfig()
			if tt.setup != nil {
				tt.setup(t, c)
			}

			app, err := NewApp(context.Background(), c, logging.Nop{})
			require.NoError(t, err)
			if app.redis != nil {
				t.Cleanup(func() { _ = app.redis.Close() })
			}
			assert.Equal(t, tt.want, app.janitor.Len())
		})
	}
}

func TestNewApp_SnapshotLoadFailureKeepsStoredObject(t *testing.T) {
	truncated := []byte(`{"entries":[{"tokenHash":"abc","expiresAt":"2030-01-01T00:00:00Z"}],`)

	tests := []struct {
		name    string
		getErr  error
		wantErr string
	}{
		{name: "corrupt object", wantErr: "decode snapshot"},
		{name: "store timeout", getErr: context.DeadlineExceeded, wantErr: "get snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := stubDeps(t)
			h.mock.ExpectClose()

			c := testConfig()
			c.S3Bucket = "vh"
			h.store.objects[c.S3SnapshotKey] = truncated
			h.store.getErr = tt.getErr

			_, err := NewApp(context.Background(), c, logging.Nop{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "restore revocations")
			assert.Contains(t, err.Error(), tt.wantErr)

			h.store.mu.Lock()
			defer h.store.mu.Unlock()
			assert.Zero(t, h.store.puts)
			assert.Equal(t, truncated, h.store.objects[c.S3SnapshotKey])
			assert.NoError(t, h.mock.ExpectationsWereMet())
		})
	}
}

func TestNewApp_DBFailureFlushesTracing(t *testing.T) {
	stubDeps(t)

	var flushed bool
	origTracing := initTracing
	t.Cleanup(func() { initTracing = origTracing })
	initTracing = func(context.Context, observability.TracingConfig) (observability.ShutdownFunc, error) {
		return func(context.Context) error {
			flushed = true
			return nil
		}, nil
	}
	openDB = func(context.Context, string) (*sql.DB, error) { return nil, errors.New("connection refused") }

	_, err := NewApp(context.Background(), testConfig(), logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
	assert.True(t, flushed)
}
