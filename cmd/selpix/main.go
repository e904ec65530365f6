package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/selpix/selpix/internal/config"
	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/logging"
	"github.com/selpix/selpix/internal/server"
	"github.com/selpix/selpix/internal/stats"
)

const webhookRetryBatch = 50

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	statsWorker := stats.NewWorker(srv.Roller(), cfg.Stats.Interval, logger)
	statsWorker.Start(bgCtx)

	backups := srv.BackupManager()
	backups.Start(bgCtx)
	if !backups.Configured() {
		slog.Info("backups disabled", "reason", "bucket, credentials or passphrase not set")
	}

	// Background maintenance goroutine
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.Processor().Retry(bgCtx, webhookRetryBatch); err != nil {
					slog.Error("retry webhooks", "error", err)
				} else if n > 0 {
					slog.Info("retried webhooks", "count", n)
				}
				cutoff := time.Now().Add(-cfg.Billing.RetainProcessedFor)
				if n, err := srv.WebhookEventStore().DeleteProcessedBefore(bgCtx, cutoff); err != nil {
					slog.Error("prune webhook events", "error", err)
				} else if n > 0 {
					slog.Info("pruned webhook events", "count", n)
				}
				if n := srv.RateLimiter().Cleanup(); n > 0 {
					slog.Debug("rate limit windows dropped", "count", n)
				}
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("selpix starting", "addr", ":"+cfg.Port, "base_url", cfg.BaseURL, "dialect", db.Dialect.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	statsWorker.Stop()
	backups.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
