package forecast

import (
	"sort"
	"time"

	"runway/internal/core"
)

// bucket accumulates one week/category cell of the ledger.
type bucket struct {
	code      string
	group     string
	label     string
	subLabel  string
	direction core.CashDirection
	sortOrder int
	cents     int64
	count     int
	actual    bool
}

// ledger is the explicit two-level structure the aggregator reduces into:
// an ordered week skeleton, each week holding category buckets. Weeks with
// no activity stay present with zero totals.
type ledger struct {
	weeks   []time.Time
	buckets map[time.Time]map[string]*bucket
}

// newLedger pre-populates one empty week per Sunday from firstWeek to
// lastWeek inclusive, contiguous.
func newLedger(firstWeek, lastWeek time.Time) *ledger {
	l := &ledger{buckets: make(map[time.Time]map[string]*bucket)}
	for wk := firstWeek; !wk.After(lastWeek); wk = wk.AddDate(0, 0, 7) {
		l.weeks = append(l.weeks, wk)
		l.buckets[wk] = make(map[string]*bucket)
	}
	return l
}

// contains reports whether the week key is part of the skeleton.
func (l *ledger) contains(week time.Time) bool {
	_, ok := l.buckets[week]
	return ok
}

// add accumulates cents into the week/category bucket, creating it with
// the given display metadata on first touch. Repeated adds sum.
func (l *ledger) add(week time.Time, meta bucketMeta, cents int64, count int, actual bool) {
	wb, ok := l.buckets[week]
	if !ok {
		return
	}
	b, ok := wb[meta.code]
	if !ok {
		b = &bucket{
			code:      meta.code,
			group:     meta.group,
			label:     meta.label,
			subLabel:  meta.subLabel,
			direction: meta.direction,
			sortOrder: meta.sortOrder,
		}
		wb[meta.code] = b
	}
	b.cents += cents
	b.count += count
	if actual {
		b.actual = true
	}
}

// bucketMeta carries the display attributes a bucket is created with.
type bucketMeta struct {
	code      string
	group     string
	label     string
	subLabel  string
	direction core.CashDirection
	sortOrder int
}

// metaFor maps a registry category onto bucket metadata.
func metaFor(cat core.DisplayCategory) bucketMeta {
	return bucketMeta{
		code:      cat.Code,
		group:     cat.Group,
		label:     cat.Label,
		subLabel:  cat.SubLabel,
		direction: cat.Direction,
		sortOrder: cat.SortOrder,
	}
}

// emit folds the ledger into the ordered WeeklyForecast sequence, seeding
// the running balance and threading it forward. Categories inside each
// week come out sorted by sort order, ties broken by category code.
func (l *ledger) emit(seed core.Money) []core.WeeklyForecast {
	out := make([]core.WeeklyForecast, 0, len(l.weeks))
	running := seed.Cents

	for _, wk := range l.weeks {
		wb := l.buckets[wk]

		cats := make([]core.CategoryForecast, 0, len(wb))
		var inflows, outflows int64
		for _, b := range wb {
			switch b.direction {
			case core.CashIn:
				inflows += abs64(b.cents)
			case core.CashOut:
				outflows += abs64(b.cents)
			}
			cats = append(cats, core.CategoryForecast{
				CategoryCode:     b.code,
				Group:            b.group,
				Label:            b.label,
				SubLabel:         b.subLabel,
				AmountCents:      b.cents,
				TransactionCount: b.count,
				Actual:           b.actual,
				SortOrder:        b.sortOrder,
			})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].SortOrder != cats[j].SortOrder {
				return cats[i].SortOrder < cats[j].SortOrder
			}
			return cats[i].CategoryCode < cats[j].CategoryCode
		})

		net := inflows - outflows
		week := core.WeeklyForecast{
			WeekEnding:         wk,
			BeginningCashCents: running,
			TotalInflowsCents:  inflows,
			TotalOutflowsCents: outflows,
			NetCashFlowCents:   net,
			EndingCashCents:    running + net,
			Categories:         cats,
		}
		running = week.EndingCashCents
		out = append(out, week)
	}

	return out
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
