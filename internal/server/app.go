// Package server wires the VolunteerHub auth server together (storage, the
// revocation backend and its janitor, tracing, the HTTP API and the gRPC
// introspection endpoint) and runs it until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/buildinfo"
	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"github.com/dmitrijs2005/volunteerhub/internal/server/config"
	"github.com/dmitrijs2005/volunteerhub/internal/server/httpapi"
	"github.com/dmitrijs2005/volunteerhub/internal/server/observability"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/volunteerhub/internal/server/revocation"
	"github.com/dmitrijs2005/volunteerhub/internal/server/services"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/volunteerhub/internal/server/grpc"
)

const (
	serviceName     = "volunteerhub-auth"
	cacheTTL        = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Seams for tests.
var (
	openDB         = repomanager.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
	initTracing    = observability.InitTracing
	newS3Client    = func(ctx context.Context, s revocation.S3Settings) (revocation.ObjectStore, error) {
		return revocation.NewS3Client(ctx, s)
	}
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	memory      *revocation.Memory
	snapshotter *revocation.Snapshotter
	janitor     *revocation.Janitor
	service     *services.AuthService
	handler     http.Handler

	shutdownTracing observability.ShutdownFunc
}

// NewApp validates c, connects to the database, applies migrations, builds
// the revocation backend and restores its snapshot when one is configured.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{config: c, logger: logger}
	app.janitor = revocation.NewJanitor(logger.With("module", "janitor"))

	shutdown, err := initTracing(ctx, observability.TracingConfig{
		Endpoint:       c.OTLPEndpoint,
		Insecure:       c.OTLPInsecure,
		ServiceName:    serviceName,
		ServiceVersion: buildinfo.Version,
	})
	if err != nil {
		return nil, err
	}
	app.shutdownTracing = shutdown

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("migrations: %w", err)
	}

	list, err := app.buildRevocationList(ctx, rm)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	issuer, err := auth.NewIssuer([]byte(c.SecretKey), c.TokenIssuer)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	validator, err := auth.NewValidator([]byte(c.SecretKey), c.TokenIssuer)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	app.service = services.NewAuthService(db, rm, issuer, validator, list, metrics, logger)
	app.handler = httpapi.NewRouter(httpapi.RouterDeps{
		Service:  app.service,
		Health:   observability.NewHealthChecker(db, app.redis),
		Metrics:  metrics,
		Gatherer: registry,
		Log:      logger,
	})

	return app, nil
}

func (app *App) buildRevocationList(ctx context.Context, rm repomanager.RepositoryManager) (revocation.List, error) {
	c := app.config

	var list revocation.List
	switch c.RevocationBackend {
	case config.BackendRedis:
		client, err := revocation.NewRedisClient(c.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		app.redis = client
		list = revocation.NewRedis(client, revocation.DefaultRedisPrefix)
	case config.BackendPostgres:
		pg := revocation.NewPostgres(app.db, rm.RevokedTokens)
		app.janitor.Every("purge", c.RevocationSweepInterval, revocation.PurgeJob(pg))
		list = pg
	default:
		app.memory = revocation.NewMemory()
		app.janitor.Every("sweep", c.RevocationSweepInterval, revocation.SweepJob(app.memory))
		list = app.memory

		if c.SnapshotEnabled() {
			store, err := newS3Client(ctx, revocation.S3Settings{
				Bucket:       c.S3Bucket,
				Key:          c.S3SnapshotKey,
				Region:       c.S3Region,
				BaseEndpoint: c.S3BaseEndpoint,
				AccessKey:    c.S3RootUser,
				SecretKey:    c.S3RootPassword,
			})
			if err != nil {
				return nil, err
			}
			// Saving is enabled only after a restore, so a failed load never
			// overwrites the stored object with an empty list.
			snapshotter := revocation.NewSnapshotter(store, c.S3Bucket, c.S3SnapshotKey)
			n, err := snapshotter.Load(ctx, app.memory)
			if err != nil {
				return nil, fmt.Errorf("restore revocations: %w", err)
			}
			app.snapshotter = snapshotter
			app.logger.Info(ctx, "revocations restored", "count", n)
			app.janitor.Every("snapshot", c.S3SnapshotInterval, revocation.SnapshotJob(snapshotter, app.memory))
		}
	}

	// The in-process cache only helps shared backends.
	if c.RevocationCacheSize > 0 && app.memory == nil {
		list = revocation.NewCached(list, c.RevocationCacheSize, cacheTTL)
	}

	app.logger.Info(ctx, "revocation backend ready", "backend", c.RevocationBackend)
	return list, nil
}

// Handler returns the HTTP handler tree.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:         app.config.EndpointAddrHTTP,
		Handler:      app.handler,
		ReadTimeout:  app.config.HTTPReadTimeout,
		WriteTimeout: app.config.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	if app.config.EndpointAddrGRPC == "" {
		return nil
	}
	return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.service).Run(ctx)
}

// Run serves until ctx is cancelled, a shutdown signal arrives or a server
// fails. It then saves the revocation snapshot and releases connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.startHTTPServer(gctx) })
	g.Go(func() error { return app.startGRPCServer(gctx) })
	if app.janitor.Len() > 0 {
		g.Go(func() error {
			app.janitor.Run(gctx)
			return nil
		})
	}

	err := g.Wait()
	app.close(context.Background())
	return err
}

// close persists the memory snapshot and closes connections. Failures are
// logged only.
func (app *App) close(ctx context.Context) {
	if app.snapshotter != nil && app.memory != nil {
		saveCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		n, err := app.snapshotter.Save(saveCtx, app.memory)
		cancel()
		if err != nil {
			app.logger.Error(ctx, "save revocation snapshot", "error", err)
		} else {
			app.logger.Info(ctx, "revocation snapshot saved", "count", n)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "close redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "close db", "error", err)
		}
	}
	if app.shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := app.shutdownTracing(flushCtx); err != nil {
			app.logger.Error(ctx, "flush traces", "error", err)
		}
		cancel()
	}
}
