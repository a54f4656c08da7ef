package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/db"
	"github.com/pysugar/oauth-connect/internal/logging"
	"github.com/pysugar/oauth-connect/internal/proxy/handlers"
	"github.com/pysugar/oauth-connect/internal/upstream"
	"github.com/pysugar/oauth-connect/internal/version"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", logging.FormatJSON, os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	zerolog.DefaultContextLogger = &logger
	for _, warning := range cfg.Warnings() {
		logger.Warn().Msg(warning)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("Failed to initialize account cache")
	}

	client := upstream.NewClient(cfg.UnipileBaseURL, cfg.UnipileAPIKey, cfg.UnipileTimeout)

	router := handlers.NewRouter(handlers.Deps{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Store:    store,
		Statuses: accounts.NewReconciler(store, client),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("version", version.Version).
			Str("commit", version.Commit).
			Str("unipile", client.BaseURL()).
			Str("cache", cfg.CacheBackend).
			Msg("Connect service starting")
		logger.Info().Msgf("Dashboard: %s/", cfg.FrontendURL)
		logger.Info().Msgf("Webhook URL: %s", cfg.WebhookURL())

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

func openStore(cfg *config.Config) (accounts.Store, error) {
	if cfg.CacheBackend != config.CacheSQLite {
		return accounts.NewMemoryStore(), nil
	}
	database, err := db.InitDB(cfg.CacheDSN)
	if err != nil {
		return nil, err
	}
	return db.NewStore(database), nil
}
