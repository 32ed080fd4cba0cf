package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/api"
	"github.com/diiviikk5/stellar-v1k/internal/auth"
	"github.com/diiviikk5/stellar-v1k/internal/config"
	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
	"github.com/diiviikk5/stellar-v1k/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	src := stats.Default()
	if cfg.RandomSeed != 0 {
		src = stats.NewSeeded(cfg.RandomSeed)
		logger.Info("using seeded generator", "seed", cfg.RandomSeed)
	}

	streamCfg := stream.Config{
		MaxConcurrentPerIP: cfg.StreamMaxConcurrent,
		KeepaliveInterval:  cfg.StreamKeepalive(),
		MinInterval:        cfg.StreamMinInterval(),
	}
	logger.Info("stream config",
		"max_concurrent_per_ip", streamCfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", streamCfg.KeepaliveInterval.Seconds(),
		"min_interval_seconds", streamCfg.MinInterval.Seconds(),
	)

	srv := api.NewServer(api.Options{
		Addr:               cfg.HTTPAddr,
		Auth:               auth.Config{Enabled: cfg.AuthEnabled, Token: cfg.AuthToken},
		TrustProxy:         cfg.TrustProxy,
		MaxResidualSamples: cfg.MaxResidualSamples,
		Stream:             streamCfg,
	}, logger, src)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"auth_enabled", cfg.AuthEnabled,
			"satellites", len(gnss.Satellites()),
			"max_residual_samples", cfg.MaxResidualSamples,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
