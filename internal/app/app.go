package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/access"
	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/config"
	"github.com/gokatarajesh/question-bank/internal/db/migrations"
	"github.com/gokatarajesh/question-bank/internal/db/postgrest"
	"github.com/gokatarajesh/question-bank/internal/db/queries"
	"github.com/gokatarajesh/question-bank/internal/db/repository"
	"github.com/gokatarajesh/question-bank/internal/logging"
	"github.com/gokatarajesh/question-bank/internal/question"
	"github.com/gokatarajesh/question-bank/internal/server"
	ws "github.com/gokatarajesh/question-bank/pkg/http/ws"
)

// backend is satisfied by both *queries.Store and *postgrest.Client.
type backend interface {
	repository.QuestionStore
	repository.GrantStore
	server.Pinger
}

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *question.FeedBroadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, the data store, optional Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Str("backend", cfg.Store.Backend).Str("verifier", cfg.Auth.VerifierMode).Msg("starting application bootstrap")

	httpClient := &http.Client{Timeout: cfg.DownstreamTimeout}
	deps := make(map[string]server.Pinger, 2)

	var (
		store backend
		pool  *pgxpool.Pool
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		var err error
		pool, err = openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = queries.NewStore(pool)
	case config.BackendREST:
		store = postgrest.NewClient(cfg.Identity.URL, cfg.Identity.ServiceKey, httpClient)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	deps["database"] = store

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		deps["redis"] = server.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; page cache and live feed disabled")
	}

	verifier, err := auth.NewVerifier(ctx, cfg, httpClient, logger)
	if err != nil {
		closeAll(pool, redisClient)
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	checker := access.NewChecker(repository.NewGrantRepository(store), cfg.Access.EnforceExpiry, logger)

	var (
		cache question.PageCache
		feed  question.FeedPublisher
	)
	if redisClient != nil {
		if c := question.NewCache(redisClient, cfg.Questions.CacheTTL); c != nil {
			cache = c
		}
		if f := question.NewRedisFeed(redisClient); f != nil {
			feed = f
		}
	}

	questionSvc := question.NewService(repository.NewQuestionRepository(store), cache, feed, logger).WithReadTimeout(cfg.DownstreamTimeout)
	gate := question.NewGate(verifier, checker)
	listHandler := question.NewListHandler(gate, questionSvc, cfg.Questions.PageSize, cfg.DownstreamTimeout, logger)
	adminHandler := question.NewAdminHandler(questionSvc, logger)

	var (
		hub         *ws.Hub
		broadcaster *question.FeedBroadcaster
	)
	if redisClient != nil {
		hub = ws.NewHub(logger)
		broadcaster = question.NewFeedBroadcaster(redisClient, hub, logger)
	}
	feedHandler := question.NewFeedHandler(gate, hub, server.NewUpgrader(cfg.CORS.AllowedOrigins), cfg.DownstreamTimeout, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(access.Collectors()...)
	registry.MustRegister(question.Collectors()...)

	apiServer := server.NewHTTPServer(cfg, logger, registry, server.Routes{
		Questions:    listHandler,
		Feed:         feedHandler,
		AdminCreate:  adminHandler.Create,
		AdminPublish: adminHandler.Publish,
		AdminGuard:   auth.AdminGuard(cfg.Admin.TokenHash, logger),
	}, deps)

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 1),
	}, nil
}

func openPool(ctx context.Context, cfg *config.App) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.Store.AutoMigrate {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(ctx, db)
		_ = db.Close()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return pool, nil
}

func closeAll(pool *pgxpool.Pool, redisClient *redis.Client) {
	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster == nil {
		return
	}
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("question feed broadcaster stopped")
		}
	}()
}
