// Package worker rebuilds the forecast when inputs change and pushes the
// snapshot to the configured export backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"runway/internal/amqp"
	"runway/internal/core"
	"runway/internal/export"
	"runway/internal/forecast"
	"runway/internal/log"
)

// Computer is the slice of the forecast engine the worker needs.
// *forecast.Engine satisfies it.
type Computer interface {
	Compute(ctx context.Context, req forecast.Request) ([]core.WeeklyForecast, error)
}

var _ Computer = (*forecast.Engine)(nil)

// ExportWorker recomputes the default forecast window and exports the
// snapshot, either on demand (AMQP message) or on a schedule.
type ExportWorker struct {
	engine   Computer
	exporter export.ForecastExporter
	weeks    int
}

func NewExportWorker(engine Computer, exporter export.ForecastExporter, weeks int) *ExportWorker {
	if weeks <= 0 {
		weeks = forecast.DefaultWeeks
	}
	return &ExportWorker{
		engine:   engine,
		exporter: exporter,
		weeks:    weeks,
	}
}

// HandleRecomputeMessage processes a single recompute request from AMQP.
func (w *ExportWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.ForecastRecomputeMessage) error {
	slog.InfoContext(ctx, "Processing recompute message",
		"reason", msg.Reason,
		"requested_at", msg.Timestamp)

	return w.Recompute(ctx)
}

// Recompute builds the default-window forecast and exports it. A window
// that cannot be derived yet (no verified transactions) is not an error
// for the worker; there is simply nothing to export.
func (w *ExportWorker) Recompute(ctx context.Context) error {
	weeks, err := w.engine.Compute(ctx, forecast.Request{Weeks: w.weeks})
	if err != nil {
		if errors.Is(err, core.ErrInvalidWindow) {
			slog.WarnContext(ctx, "Skipping export, no forecast window available", "error", err)
			return nil
		}
		return fmt.Errorf("compute forecast: %w", err)
	}

	if w.exporter == nil {
		slog.InfoContext(ctx, "No export backend configured, snapshot discarded", "weeks", len(weeks))
		return nil
	}

	ref, err := w.exporter.Export(ctx, weeks)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	fields := log.NewFields().
		WithComponent(log.ComponentWorker).
		WithOperation(log.OpExport)
	fields[log.FieldExportRef] = ref
	fields[log.FieldWeeks] = len(weeks)
	slog.InfoContext(ctx, "Forecast snapshot exported", fields.ToSlice()...)
	return nil
}

// RunSchedule exports on a fixed interval until the context is
// cancelled. Used as a backstop in case recompute messages are lost.
func (w *ExportWorker) RunSchedule(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping scheduled exports", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.Recompute(ctx); err != nil {
				slog.ErrorContext(ctx, "Scheduled export failed", "error", err)
			}
		}
	}
}
