package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"runway/internal/amqp"
	"runway/internal/cache"
	"runway/internal/config"
	"runway/internal/core"
	"runway/internal/forecast"
	apphttp "runway/internal/http"
	applog "runway/internal/log"
	"runway/internal/services"
	"runway/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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

	// AMQP is optional; the API works without the export worker.
	var publisher services.RecomputePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without recompute messages", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	engine := forecast.NewEngine(repo, repo, repo, repo, cfg.ClearingAccount, cfg.ForecastWeeks)

	forecastCache := cache.NewLRUCache[[]core.WeeklyForecast](cfg.ForecastCacheSize, cfg.ForecastCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(forecastCache)
	cacheManager.StartCleanup(10 * time.Minute)

	svc := services.NewForecastService(repo, engine, forecastCache, publisher)
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cacheManager.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting runway server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"forecast_weeks", cfg.ForecastWeeks)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
