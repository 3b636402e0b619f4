package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"runway/internal/amqp"
	"runway/internal/core"
	"runway/internal/export/memory"
	"runway/internal/forecast"
)

type fakeEngine struct {
	weeks []core.WeeklyForecast
	err   error
	calls int
	req   forecast.Request
}

func (f *fakeEngine) Compute(_ context.Context, req forecast.Request) ([]core.WeeklyForecast, error) {
	f.calls++
	f.req = req
	return f.weeks, f.err
}

func snapshot(n int) []core.WeeklyForecast {
	weeks := make([]core.WeeklyForecast, n)
	for i := range weeks {
		weeks[i] = core.WeeklyForecast{
			WeekEnding: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*i),
		}
	}
	return weeks
}

func TestExportWorker_HandleRecomputeMessage(t *testing.T) {
	engine := &fakeEngine{weeks: snapshot(13)}
	store := memory.New()
	w := NewExportWorker(engine, store, 13)

	msg := amqp.NewForecastRecomputeMessage(amqp.ReasonARForecast)
	if err := w.HandleRecomputeMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRecomputeMessage() error = %v", err)
	}

	if engine.req.Weeks != 13 {
		t.Errorf("computed weeks = %d, want 13", engine.req.Weeks)
	}
	got, ok := store.Latest()
	if !ok || len(got) != 13 {
		t.Fatalf("Latest() = %d weeks, %v; want 13 weeks", len(got), ok)
	}
}

func TestExportWorker_DefaultWeeks(t *testing.T) {
	engine := &fakeEngine{weeks: snapshot(1)}
	w := NewExportWorker(engine, memory.New(), 0)

	if err := w.Recompute(context.Background()); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if engine.req.Weeks != forecast.DefaultWeeks {
		t.Errorf("weeks = %d, want %d", engine.req.Weeks, forecast.DefaultWeeks)
	}
}

func TestExportWorker_NoWindowIsNotFatal(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("derive window: %w", core.ErrInvalidWindow)}
	store := memory.New()
	w := NewExportWorker(engine, store, 13)

	if err := w.Recompute(context.Background()); err != nil {
		t.Errorf("Recompute() with no derivable window = %v, want nil", err)
	}
	if store.Count() != 0 {
		t.Error("nothing should be exported when the window cannot be derived")
	}
}

func TestExportWorker_ComputeFailurePropagates(t *testing.T) {
	engine := &fakeEngine{err: errors.New("db gone")}
	w := NewExportWorker(engine, memory.New(), 13)

	if err := w.Recompute(context.Background()); err == nil {
		t.Error("Recompute() should surface compute failures so the message is requeued")
	}
}

func TestExportWorker_NilExporter(t *testing.T) {
	engine := &fakeEngine{weeks: snapshot(2)}
	w := NewExportWorker(engine, nil, 13)

	if err := w.Recompute(context.Background()); err != nil {
		t.Errorf("Recompute() without exporter = %v, want nil", err)
	}
}

func TestExportWorker_RunScheduleStopsOnCancel(t *testing.T) {
	engine := &fakeEngine{weeks: snapshot(1)}
	store := memory.New()
	w := NewExportWorker(engine, store, 13)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.RunSchedule(ctx, 5*time.Millisecond)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunSchedule() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunSchedule() did not stop after cancel")
	}

	if store.Count() == 0 {
		t.Error("scheduled runs should have exported at least one snapshot")
	}
}
