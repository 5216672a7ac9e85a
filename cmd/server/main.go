package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/cbt-admin/internal/api"
	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/cache"
	"github.com/p-n-ai/cbt-admin/internal/platform/config"
	"github.com/p-n-ai/cbt-admin/internal/platform/database"
	"github.com/p-n-ai/cbt-admin/internal/questionbank"
	"github.com/p-n-ai/cbt-admin/internal/reconcile"
	"github.com/p-n-ai/cbt-admin/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(newLogHandler(cfg.Log)))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store, "cache", cfg.Cache.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogHandler(cfg config.LogConfig) slog.Handler {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

// app holds the wired handler and the resources it must release.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var checks []func(context.Context) error

	var (
		examStore     catalog.Store
		questionStore questionbank.Store
	)
	switch cfg.Store {
	case "postgres":
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, db.HealthCheck)

		schema := append(append([]string{}, catalog.Schema...), questionbank.Schema...)
		if err := db.Migrate(ctx, schema...); err != nil {
			a.close()
			return nil, err
		}
		es, err := catalog.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		qs, err := questionbank.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		examStore, questionStore = es, qs
	default:
		examStore, questionStore = catalog.NewMemoryStore(), questionbank.NewMemoryStore()
	}

	svcCfg := catalog.ServiceConfig{
		Store:               examStore,
		DefaultMinQuestions: cfg.Catalog.MinQuestionsPerSubject,
	}
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks = append(checks, c.HealthCheck)
		svcCfg.Cache = cache.NewReadCache(c.Client, "exams", cfg.Cache.TTL)
	}
	svc := catalog.NewService(svcCfg)

	tree := taxonomy.NewTree()
	if cfg.TaxonomyPath != "" {
		t, err := taxonomy.Load(cfg.TaxonomyPath)
		if err != nil {
			a.close()
			return nil, err
		}
		tree = t
	}

	rec := reconcile.New(svc, questionStore)
	bank := questionbank.NewBank(questionbank.BankConfig{
		Store:    questionStore,
		Exams:    svc,
		Taxonomy: tree,
		Counts:   rec,
	})

	a.handler = api.NewRouter(api.Config{
		Catalog:        svc,
		Bank:           bank,
		Reconciler:     rec,
		Taxonomy:       tree,
		Auth:           api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return a, nil
}
