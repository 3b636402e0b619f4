// Package services orchestrates forecast reads and manual entry writes
// across storage, the forecast engine, the cache, and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"runway/internal/amqp"
	"runway/internal/cache"
	"runway/internal/core"
	"runway/internal/forecast"
)

// EntryStore covers the storage operations the service writes through,
// plus the category listing the API exposes directly.
type EntryStore interface {
	UpsertARForecast(ctx context.Context, f core.ARForecast) error
	InsertCashBalance(ctx context.Context, b core.CashBalance) error
	Categories(ctx context.Context) ([]core.DisplayCategory, error)
	Close() error
}

// RecomputePublisher notifies the export worker that stored inputs
// changed. *amqp.Client satisfies it.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, reason string) error
	Close() error
}

var _ RecomputePublisher = (*amqp.Client)(nil)

// ForecastService serves forecasts through an LRU cache and invalidates
// it when manual entries change.
type ForecastService struct {
	store     EntryStore
	engine    *forecast.Engine
	cache     cache.Cache[[]core.WeeklyForecast]
	publisher RecomputePublisher
}

func NewForecastService(store EntryStore, engine *forecast.Engine, c cache.Cache[[]core.WeeklyForecast], publisher RecomputePublisher) *ForecastService {
	return &ForecastService{
		store:     store,
		engine:    engine,
		cache:     c,
		publisher: publisher,
	}
}

// Forecast computes the weekly forecast for the requested window,
// serving from cache when a fresh copy exists.
func (s *ForecastService) Forecast(ctx context.Context, req forecast.Request) ([]core.WeeklyForecast, error) {
	key := cacheKey(req)
	if s.cache != nil {
		if weeks, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Forecast cache hit", "key", key)
			return weeks, nil
		}
	}

	weeks, err := s.engine.Compute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("compute forecast: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key, weeks)
	}
	return weeks, nil
}

// SaveARForecast upserts a manual AR estimate, drops cached forecasts,
// and asks the worker to re-export. Publish failures are logged, not
// returned: the write already succeeded.
func (s *ForecastService) SaveARForecast(ctx context.Context, f core.ARForecast) error {
	if f.WeekEnding.IsZero() {
		return fmt.Errorf("ar forecast week ending is required")
	}

	if err := s.store.UpsertARForecast(ctx, f); err != nil {
		return fmt.Errorf("save ar forecast: %w", err)
	}

	s.invalidate(ctx, amqp.ReasonARForecast)
	return nil
}

// SaveCashBalance records a cash snapshot and invalidates downstream
// forecasts the same way.
func (s *ForecastService) SaveCashBalance(ctx context.Context, b core.CashBalance) error {
	if b.AsOf.IsZero() {
		return fmt.Errorf("cash balance as-of date is required")
	}

	if err := s.store.InsertCashBalance(ctx, b); err != nil {
		return fmt.Errorf("save cash balance: %w", err)
	}

	s.invalidate(ctx, amqp.ReasonCashBalance)
	return nil
}

// Categories lists the display category registry.
func (s *ForecastService) Categories(ctx context.Context) ([]core.DisplayCategory, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *ForecastService) invalidate(ctx context.Context, reason string) {
	if s.cache != nil {
		s.cache.Clear()
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recompute message", "reason", reason)
		return
	}
	if err := s.publisher.PublishRecompute(ctx, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			"reason", reason,
			"error", err)
	}
}

// Close closes storage and the AMQP connection.
func (s *ForecastService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close forecast service: %v", errs)
	}
	return nil
}

// cacheKey derives a stable key from the request window.
func cacheKey(req forecast.Request) string {
	if !req.Start.IsZero() || !req.End.IsZero() {
		return fmt.Sprintf("window:%s:%s",
			req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}
	return fmt.Sprintf("weeks:%d", req.Weeks)
}
