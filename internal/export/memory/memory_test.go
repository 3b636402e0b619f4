package memory

import (
	"context"
	"testing"
	"time"

	"runway/internal/core"
)

func TestStoreExportAndLatest(t *testing.T) {
	s := New()

	if _, ok := s.Latest(); ok {
		t.Fatal("Latest() on empty store should report no snapshot")
	}

	week := core.WeeklyForecast{
		WeekEnding:       time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
		EndingCashCents:  125000,
		NetCashFlowCents: 25000,
	}

	ref, err := s.Export(context.Background(), []core.WeeklyForecast{week})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Export() ref = %q, want mem:1", ref)
	}

	got, ok := s.Latest()
	if !ok || len(got) != 1 {
		t.Fatalf("Latest() = %v, %v; want one week", got, ok)
	}
	if !got[0].WeekEnding.Equal(week.WeekEnding) {
		t.Errorf("Latest() week ending = %v, want %v", got[0].WeekEnding, week.WeekEnding)
	}

	ref, _ = s.Export(context.Background(), nil)
	if ref != "mem:2" || s.Count() != 2 {
		t.Errorf("second Export() ref = %q count = %d, want mem:2 and 2", ref, s.Count())
	}
}
