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

	"docroom/api/internal/app"
	"docroom/api/internal/auth"
	"docroom/api/internal/config"
	"docroom/api/internal/directory"
	"docroom/api/internal/metrics"
	"docroom/api/internal/session"
	"docroom/api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("docroom api stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{MaxOpenConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sessions, closeSessions, err := newSessionSource(cfg, logger)
	if err != nil {
		return fmt.Errorf("session backend failed: %w", err)
	}
	defer closeSessions()

	members, err := newDirectory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("directory setup failed: %w", err)
	}
	resolver := directory.NewResolver(members,
		directory.WithLogger(logger.With("component", "directory")),
		directory.WithMetrics(m),
	)

	service := app.New(cfg, store.NewPostgresStore(db), sessions, resolver,
		app.WithLogger(logger.With("component", "rooms")),
		app.WithMetrics(m),
	)
	defer service.Close()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin,
		app.WithServerLogger(logger.With("component", "http")),
		app.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logger.Info("docroom api listening", "addr", cfg.Addr, "session_backend", cfg.SessionBackend)
	return serve(ctx, server, logger)
}

// serve runs the server until ctx is cancelled or it fails to listen, then
// shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

type claimsSource interface {
	Claims(context.Context, string) (auth.Claims, error)
}

func newSessionSource(cfg config.Config, logger *slog.Logger) (claimsSource, func(), error) {
	if strings.EqualFold(cfg.SessionBackend, "redis") {
		logger.Info("using redis for session lookup")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, func() { _ = redisStore.Close() }, nil
	}

	var opts []auth.Option
	if cfg.SessionJWKSURL != "" {
		opts = append(opts, auth.WithJWKS(cfg.SessionJWKSURL))
	}
	if cfg.SessionJWTSecret != "" {
		opts = append(opts, auth.WithHMACSecret(cfg.SessionJWTSecret))
	}
	if cfg.SessionIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.SessionIssuer))
	}
	if len(opts) == 0 {
		return nil, nil, errors.New("SESSION_JWKS_URL or SESSION_JWT_SECRET is required for the jwt session backend")
	}
	logger.Info("verifying session tokens locally", "jwks", cfg.SessionJWKSURL != "")
	return auth.NewVerifier(opts...), func() {}, nil
}

func newDirectory(ctx context.Context, cfg config.Config, logger *slog.Logger) (directory.MemberLister, error) {
	if cfg.DirectoryConfigured() {
		logger.Info("using remote identity directory", "base_url", cfg.DirectoryBaseURL)
		return directory.NewHTTPDirectory(ctx, directory.HTTPConfig{
			BaseURL:      cfg.DirectoryBaseURL,
			SecretKey:    cfg.DirectorySecretKey,
			TokenURL:     cfg.DirectoryTokenURL,
			ClientID:     cfg.DirectoryClientID,
			ClientSecret: cfg.DirectoryClientSecret,
			PageSize:     cfg.DirectoryPageSize,
			Timeout:      cfg.DirectoryTimeout,
			Logger:       logger.With("component", "directory"),
		}), nil
	}

	data, err := os.ReadFile(cfg.DirectoryFixturePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("no directory configured, rosters will be empty", "fixture", cfg.DirectoryFixturePath)
		data = []byte(`{}`)
	case err != nil:
		return nil, err
	default:
		logger.Info("using static directory fixture", "path", cfg.DirectoryFixturePath)
	}
	static, err := directory.NewStaticDirectory(data)
	if err != nil {
		return nil, err
	}
	return static, nil
}
