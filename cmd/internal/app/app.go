// Package app wires the ledgerd runtime: config, logging, stores, event
// publishing, and the HTTP server.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerd/cmd/identity"
	"ledgerd/cmd/internal/api"
	"ledgerd/cmd/internal/auth"
	"ledgerd/cmd/internal/auth/token"
	"ledgerd/cmd/internal/events"
	"ledgerd/cmd/internal/ledger"
	"ledgerd/cmd/internal/stream"
	"ledgerd/cmd/security/password"
)

// App is the ledgerd runtime: it owns the HTTP server wiring and the
// lifecycle of the database pool and event publisher.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	publisher events.Publisher
	metrics   *Metrics

	handler *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	tokenCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewService(tokenCfg)
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg, tokens); err != nil {
		return nil, err
	}
	if tokens.SecretEphemeral() {
		log.Warn("token.secret.ephemeral", "hint", "set LEDGERD_TOKEN_SECRET to keep tokens valid across restarts")
	}

	principalStore, ledgerStore, dbPool, dbEnabled, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closePool := func() {
		if dbPool != nil {
			dbPool.Close()
		}
	}

	principals, err := identity.NewService(principalStore, pwCfg)
	if err != nil {
		closePool()
		return nil, err
	}

	gate, err := auth.NewGate(log, tokens, principals)
	if err != nil {
		closePool()
		return nil, err
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("events.kafka.enabled", "topic", cfg.KafkaTopic)
	}

	metrics := NewMetrics()

	handler, err := api.NewHandler(
		log,
		api.LoadConfigFromEnv(),
		principals,
		tokens,
		gate,
		ledgerStore,
		publisher,
		stream.NewHub(log),
		api.NewMetrics(metrics.Registry),
	)
	if err != nil {
		closePool()
		_ = publisher.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		publisher: publisher,
		metrics:   metrics,
		handler:   handler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.handler)

	var root http.Handler = mux
	root = WithSecurityHeaders(root)
	root = WithRequestLogging(root, a.log, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.publisher.Close(); err != nil {
		a.log.Error("publisher.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and the in-memory
// dev stores. Both stores share one pool; the app owns its lifecycle.
func newStores(ctx context.Context, cfg Config, log Logger) (identity.Store, ledger.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), ledger.NewMemoryStore(), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, false, err
	}

	principalStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}
	ledgerStore, err := ledger.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return principalStore, ledgerStore, pool, true, nil
}
