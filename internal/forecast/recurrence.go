// Package forecast implements the cash-flow forecasting engine: the
// recurrence date generator, the week bucketer and the aggregator that
// folds actuals and projections into a running-balance weekly ledger.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"runway/internal/core"
)

// adjustmentPad covers the maximum business-day shift (2 days) so that a
// date generated just outside the window can still be adjusted into it.
const adjustmentPad = 3

// Occurrences computes the concrete calendar dates on which a rule recurs
// within [start, end] inclusive. Returned dates are business-day-adjusted,
// ascending and free of duplicates. The rule is validated first; malformed
// anchors fail before any date is generated.
func Occurrences(rule core.PaymentRule, start, end time.Time) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start = core.DateOnly(start)
	end = core.DateOnly(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s",
			core.ErrInvalidWindow, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	// Generate over a padded range, adjust, then filter on the adjusted
	// dates so weekend shifts across the window edge are handled.
	padStart := start.AddDate(0, 0, -adjustmentPad)
	padEnd := end.AddDate(0, 0, adjustmentPad)

	var raw []time.Time
	switch rule.Frequency {
	case core.Weekly:
		raw = weeklyDates(rule.Anchors[0], padStart, padEnd)
	case core.Monthly:
		raw = monthlyDates(rule.Anchors[:1], padStart, padEnd)
	case core.SemiMonthly:
		raw = monthlyDates(rule.Anchors[:2], padStart, padEnd)
	case core.Quarterly:
		raw = quarterlyDates(rule.Anchors[0], rule.Anchors[1], padStart, padEnd)
	case core.SemiAnnual:
		raw = monthDayDates([][2]int{
			{rule.Anchors[0], rule.Anchors[1]},
			{rule.Anchors[2], rule.Anchors[3]},
		}, padStart, padEnd)
	case core.Annual:
		raw = monthDayDates([][2]int{
			{rule.Anchors[0], rule.Anchors[1]},
		}, padStart, padEnd)
	}

	out := make([]time.Time, 0, len(raw))
	for _, d := range raw {
		adj := adjustToBusinessDay(d, rule.Policy)
		if adj.Before(start) || adj.After(end) {
			continue
		}
		out = append(out, adj)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return dedupDates(out), nil
}

// adjustToBusinessDay shifts weekend dates onto the nearest weekday in
// the direction the policy asks for. Weekday dates pass through. Only the
// calendar weekend is consulted; there is no holiday calendar.
func adjustToBusinessDay(d time.Time, policy core.BusinessDayPolicy) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		if policy == core.MoveEarlier {
			return d.AddDate(0, 0, -1) // Friday
		}
		return d.AddDate(0, 0, 2) // Monday
	case time.Sunday:
		if policy == core.MoveEarlier {
			return d.AddDate(0, 0, -2) // Friday
		}
		return d.AddDate(0, 0, 1) // Monday
	default:
		return d
	}
}

// clampToMonth builds a date in the given month, pulling the day back to
// the month's last day when the anchor exceeds it. Anchor 31 therefore
// behaves as end-of-month all year round.
func clampToMonth(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// weeklyDates emits every date with the anchored weekday (Sunday=0).
func weeklyDates(weekday int, start, end time.Time) []time.Time {
	first := start
	for int(first.Weekday()) != weekday {
		first = first.AddDate(0, 0, 1)
	}

	var dates []time.Time
	for d := first; !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}

// monthlyDates emits one date per anchor day for every month overlapping
// the range, each day independently clamped to the month's length.
func monthlyDates(days []int, start, end time.Time) []time.Time {
	var dates []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		for _, day := range days {
			d := clampToMonth(cursor.Year(), cursor.Month(), day)
			if !d.Before(start) && !d.After(end) {
				dates = append(dates, d)
			}
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return dates
}

// quarterlyDates emits the anchored day in the starting month and its
// +3/+6/+9 offsets (wrapped into 1-12) for every year touching the range.
func quarterlyDates(day, startingMonth int, start, end time.Time) []time.Time {
	var pairs [][2]int
	for _, offset := range []int{0, 3, 6, 9} {
		month := (startingMonth-1+offset)%12 + 1
		pairs = append(pairs, [2]int{month, day})
	}
	return monthDayDates(pairs, start, end)
}

// monthDayDates emits each (month, day) pair once per year overlapping
// the range, with per-month clamping.
func monthDayDates(pairs [][2]int, start, end time.Time) []time.Time {
	var dates []time.Time
	for year := start.Year(); year <= end.Year(); year++ {
		for _, p := range pairs {
			d := clampToMonth(year, time.Month(p[0]), p[1])
			if !d.Before(start) && !d.After(end) {
				dates = append(dates, d)
			}
		}
	}
	return dates
}

// dedupDates removes adjacent duplicates from a sorted slice. Two anchors
// can land on the same weekday after adjustment; the contract is a set.
func dedupDates(dates []time.Time) []time.Time {
	if len(dates) < 2 {
		return dates
	}
	out := dates[:1]
	for _, d := range dates[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}
