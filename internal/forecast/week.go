package forecast

import (
	"time"

	"runway/internal/core"
)

// WeekEnding returns the canonical aggregation key for a date: the
// same-or-next Sunday at midnight UTC. Every dated item in the system,
// actual or projected, is bucketed through this single function so week
// boundaries never drift between sources.
func WeekEnding(t time.Time) time.Time {
	d := core.DateOnly(t)
	offset := (7 - int(d.Weekday())) % 7
	if offset == 0 {
		return d
	}
	return d.AddDate(0, 0, offset)
}
