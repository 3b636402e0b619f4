package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"runway/internal/amqp"
	"runway/internal/config"
	"runway/internal/export"
	"runway/internal/export/google"
	"runway/internal/export/memory"
	"runway/internal/forecast"
	applog "runway/internal/log"
	"runway/internal/storage"
	"runway/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting runway-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter, err := export.New(ctx, cfg.ExportBackend, export.Builders{
		Memory: func() export.ForecastExporter { return memory.New() },
		Sheets: func(ctx context.Context) (export.ForecastExporter, error) {
			return google.NewFromEnv(ctx)
		},
	}, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	engine := forecast.NewEngine(repo, repo, repo, repo, cfg.ClearingAccount, cfg.ForecastWeeks)
	exportWorker := worker.NewExportWorker(engine, exporter, cfg.ForecastWeeks)

	// Export once on startup so the sheet reflects current data even if
	// no message arrives for a while.
	if err := exportWorker.Recompute(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
	}

	go func() {
		if err := amqpClient.ConsumeRecompute(ctx, func(msg *amqp.ForecastRecomputeMessage) error {
			return exportWorker.HandleRecomputeMessage(ctx, msg)
		}); err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
			cancel()
		}
	}()

	go func() {
		if err := exportWorker.RunSchedule(ctx, cfg.RecomputeInterval); err != nil && err != context.Canceled {
			logger.Error("Scheduled export loop failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(time.Second) // let in-flight handlers finish

	logger.Info("Worker shutdown complete")
}
