package google

import (
	"testing"
	"time"

	"runway/internal/core"
)

func TestSnapshotRows(t *testing.T) {
	weeks := []core.WeeklyForecast{
		{
			WeekEnding:         time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
			BeginningCashCents: 1000000,
			TotalInflowsCents:  250000,
			TotalOutflowsCents: 450000,
			NetCashFlowCents:   -200000,
			EndingCashCents:    800000,
			Categories: []core.CategoryForecast{
				{CategoryCode: "ar_collections", Label: "AR Collections", AmountCents: 250000},
				{CategoryCode: "payroll", Label: "Payroll", SubLabel: "Salaried", AmountCents: -450000},
			},
		},
	}

	rows := snapshotRows(weeks)

	// header + 1 week summary + 2 category lines
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	if rows[0][0] != "Week Ending" {
		t.Errorf("header = %v", rows[0])
	}

	summary := rows[1]
	if summary[0] != "2025-11-02" {
		t.Errorf("week date = %v, want 2025-11-02", summary[0])
	}
	if summary[2] != 10000.0 || summary[6] != 8000.0 {
		t.Errorf("beginning/ending = %v/%v, want 10000/8000", summary[2], summary[6])
	}
	if summary[5] != -2000.0 {
		t.Errorf("net = %v, want -2000", summary[5])
	}

	if rows[2][1] != "AR Collections" || rows[2][5] != 2500.0 {
		t.Errorf("first category row = %v", rows[2])
	}
	if rows[3][1] != "Payroll / Salaried" || rows[3][5] != -4500.0 {
		t.Errorf("second category row = %v", rows[3])
	}
}

func TestSnapshotRowsEmpty(t *testing.T) {
	rows := snapshotRows(nil)
	if len(rows) != 1 {
		t.Fatalf("empty snapshot should still emit the header row, got %d rows", len(rows))
	}
}
