package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/userauth/internal/auth"
	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/db"
	httpx "github.com/geocoder89/userauth/internal/http"
	"github.com/geocoder89/userauth/internal/observability"
	"github.com/geocoder89/userauth/internal/repo/memory"
	"github.com/geocoder89/userauth/internal/repo/postgres"
	"github.com/geocoder89/userauth/internal/security"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env, cfg.ServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET not set, using the built-in development secret")
	}

	prom := observability.NewProm()

	var store httpx.Store

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		store = memory.NewUsersRepo()

	default:
		pool, err := db.NewPool(ctx, cfg.DBURL, db.WithMaxConns(cfg.DBMaxConns), db.WithApplicationName(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool, "up"); err != nil {
				return fmt.Errorf("migrate on start: %w", err)
			}
			log.Info("migrations applied")
		}

		store = postgres.NewUsersRepo(pool, prom)
	}

	hasher := security.NewPasswordHasher(cfg.BcryptCost)

	seedCtx, cancelSeed := config.WithTimeout(ctx, 5*time.Second)
	created, err := db.EnsureSeedUser(seedCtx, store, hasher, cfg)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	if created {
		log.Info("seed user created", "email", cfg.SeedUserEmail)
	}

	router, err := httpx.NewRouter(httpx.Deps{
		Config: cfg,
		Log:    log,
		Store:  store,
		Tokens: auth.NewManager(cfg.JWTSecret),
		Hasher: hasher,
		Prom:   prom,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"store", cfg.StoreDriver,
			"api_prefix", cfg.APIPrefix,
			"authz_policy", cfg.AuthzPolicy,
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// graceful shutdown
	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
