package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-progress/internal/auth"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/executor"
	"github.com/p-n-ai/pai-progress/internal/httpapi"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/realtime"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// app holds everything the server owns and must release on shutdown.
type app struct {
	handler http.Handler
	tracker *progress.Tracker
	closers []func()
}

func (a *app) close() {
	// Drain queued progress writes before the pools they write to go away.
	if a.tracker != nil {
		a.tracker.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires stores, the tracker and the HTTP handler. Without a database
// or cache URL the corresponding store is kept in memory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]httpapi.Checker{}

	catalog, err := curriculum.NewLoader(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	slog.Info("catalog loaded", "path", cfg.CatalogPath, "courses", len(catalog.Courses()))

	tcfg := progress.TrackerConfig{
		Catalog:      catalog,
		PassScore:    cfg.Progress.PassScore,
		WriteWorkers: cfg.Progress.WriteWorkers,
		WriteTimeout: cfg.Progress.WriteTimeout,
		Quota:        executor.NewInMemoryQuota(int64(cfg.Executor.DailyQuota)),
	}

	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, cfg.Database.URL, database.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		}, progress.EnsureSchema)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db

		remote, err := progress.NewPostgresRemoteStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		tcfg.Remote = remote
		tcfg.Events = progress.NewPostgresEventLogger(db.Pool)
		slog.Info("remote progress store", "backend", "postgres")
	} else {
		slog.Warn("LEARN_DATABASE_URL not set, remote progress kept in memory")
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cache.Options{})
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c

		tcfg.Local = progress.NewRedisLocalCache(c.Client, cfg.Cache.LocalTTL)
		tcfg.Quota = executor.NewRedisQuota(c.Client, int64(cfg.Executor.DailyQuota))
		slog.Info("local progress cache", "backend", "redis")
	} else {
		slog.Warn("LEARN_CACHE_URL not set, local progress kept in memory")
	}

	if router := newRunner(cfg.Executor); router.HasRunner() {
		tcfg.Runner = router
		checks["executor"] = router
		slog.Info("code execution enabled", "sandboxes", len(cfg.Executor.URLs))
	} else {
		slog.Warn("LEARN_EXECUTOR_URLS not set, code exercises disabled")
	}

	hub := realtime.NewHub()
	tcfg.Publisher = hub

	tracker, err := progress.NewTracker(tcfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create tracker: %w", err)
	}
	a.tracker = tracker

	signer, err := auth.NewSigner(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create signer: %w", err)
	}

	a.handler, err = httpapi.NewHandler(httpapi.Config{
		Tracker: tracker,
		Signer:  signer,
		Hub:     hub,
		Checks:  checks,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func newRunner(cfg config.ExecutorConfig) *executor.Router {
	client := &http.Client{Timeout: cfg.Timeout}
	router := executor.NewRouter()
	for i, url := range cfg.URLs {
		opts := []executor.Judge0Option{executor.WithJudge0HTTPClient(client)}
		if cfg.APIKey != "" {
			opts = append(opts, executor.WithJudge0APIKey(cfg.APIKey))
		}
		router.Register(fmt.Sprintf("judge0-%d", i), executor.NewJudge0Runner(url, opts...))
	}
	return router
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
