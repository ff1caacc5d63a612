// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/handler"
	"github.com/olegiv/oblog/internal/handler/api"
	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/scheduler"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// JSON bodies smaller than this are sent uncompressed.
const compressMinSize = 1024

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oBlog - blog engine API server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DB_PATH                 SQLite database path (default: ./data/oblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SERVER_PORT             Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_ENV                     Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_JWT_SECRET              HS256 secret for bearer tokens (min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_TRUST_IDENTITY_HEADERS  Trust X-User-ID headers from an auth proxy\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_REDIS_URL               Redis URL for the shared cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_KAFKA_BROKERS           Comma separated Kafka brokers for domain events (optional)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("oblog %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	slog.Info("database ready")

	cacheResult, err := cache.NewCache(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       cfg.PopularTTLDuration(),
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := cacheResult.Cache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing events publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("error closing events publisher", "error", err)
		}
	}()

	st := store.NewStore(db)
	services := service.New(service.Deps{
		Store:  st,
		Cache:  cacheResult.Cache,
		Events: publisher,
		Options: service.Options{
			PageSize:     cfg.PageSize,
			MaxPageSize:  cfg.MaxPageSize,
			PopularTTL:   cfg.PopularTTLDuration(),
			PopularLimit: cfg.PopularLimit,
		},
	})

	sched := scheduler.New(logger)
	if err := sched.Register(scheduler.PublishScheduledJob(cfg.PublishSchedule, services.Posts)); err != nil {
		return err
	}
	if err := sched.Register(scheduler.RefreshPopularJob(cfg.PopularSchedule, services.Popular)); err != nil {
		return err
	}
	sched.Start()

	router := newRouter(cfg, logger, st, cacheResult.Cache, services, versionInfo)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeoutDuration() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String(),
			"cache", cacheResult.Backend, "kafka", cfg.UseKafka())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		_ = sched.Stop(context.Background())
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		slog.Warn("scheduler did not stop cleanly", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// log publisher otherwise.
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.UseKafka() {
		return events.NewLogPublisher(logger), nil
	}
	p, err := events.NewKafkaPublisher(events.KafkaOptions{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("publishing domain events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return p, nil
}

// newRouter assembles the HTTP stack. Identity is resolved before request
// logging so log lines carry the actor.
func newRouter(cfg *config.Config, logger *slog.Logger, st *store.Store, c cache.Cache, svc *service.Services, v version.Info) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	if cfg.UseJWT() {
		r.Use(middleware.JWTIdentity([]byte(cfg.JWTSecret)))
	}
	if cfg.TrustIdentityHeaders {
		r.Use(middleware.HeaderIdentity())
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CompressJSON(compressMinSize))
	r.Use(middleware.Timeout(cfg.RequestTimeoutDuration()))

	healthHandler := handler.NewHealthHandler(st, c, v)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	apiHandler := api.NewHandler(svc, v)
	r.Route("/api/v1", func(r chi.Router) {
		api.Register(r, apiHandler, api.RouterConfig{
			RateLimit: cfg.APIRateLimit,
			RateBurst: cfg.APIRateBurst,
		})
	})
	slog.Info("REST API v1 mounted at /api/v1")

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusNotFound, "not_found", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return r
}
