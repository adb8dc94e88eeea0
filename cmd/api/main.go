package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmorel/userhub/internal/auth"
	"github.com/rmorel/userhub/internal/config"
	"github.com/rmorel/userhub/internal/db"
	httpx "github.com/rmorel/userhub/internal/http"
	"github.com/rmorel/userhub/internal/observability"
	"github.com/rmorel/userhub/internal/repo/postgres"
	"github.com/rmorel/userhub/internal/security"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// refuse to start without a signing secret, before anything listens
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "userhub", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	users := postgres.NewUsersRepo(pool)
	hasher := security.NewHasher(cfg.BcryptCost)

	jwtManager, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL())

	if err != nil {
		log.Error("token manager init failed", "err", err)
		os.Exit(1)
	}

	// make sure an administrator exists before serving traffic; a failed
	// bootstrap is logged but does not stop the server
	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, users, hasher, cfg, log); err != nil {
		log.Error("admin bootstrap failed", "err", err)
	}

	cancelSeed()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	router := httpx.NewRouter(httpx.RouterDeps{
		Log:    log,
		Cfg:    cfg,
		Store:  users,
		JWT:    jwtManager,
		Hasher: hasher,
		Prom:   prom,
		Ping:   pool.Ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
