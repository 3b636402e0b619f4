package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"runway/internal/core"
)

// DefaultWeeks is the standard 13-week cash-flow horizon used when the
// caller gives neither an explicit window nor a week count.
const DefaultWeeks = 13

// Collaborator ports. All reads are snapshots: the engine reads once per
// computation and never writes.
type (
	TransactionStore interface {
		// VerifiedInRange returns verified classified transactions whose
		// date falls within [start, end] inclusive.
		VerifiedInRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error)

		// LatestVerifiedDate returns the date of the most recent verified
		// transaction; ok is false when none exist.
		LatestVerifiedDate(ctx context.Context) (date time.Time, ok bool, err error)
	}

	CategoryRegistry interface {
		Categories(ctx context.Context) ([]core.DisplayCategory, error)
	}

	ItemStore interface {
		// ActiveItems returns active forecast items joined to their rules.
		ActiveItems(ctx context.Context) ([]core.ForecastItem, error)
	}

	ManualEntryStore interface {
		ARForecasts(ctx context.Context) ([]core.ARForecast, error)

		// LatestBalanceAsOf returns the most recent cash balance dated at
		// or before asOf; ok is false when none exist.
		LatestBalanceAsOf(ctx context.Context, asOf time.Time) (bal core.CashBalance, ok bool, err error)
	}
)

// Request selects the forecast window. Either both Start and End are set,
// or they are zero and the window is derived: Weeks (default 13) ending at
// the week of the latest verified transaction.
type Request struct {
	Start time.Time
	End   time.Time
	Weeks int
}

// Engine computes the weekly forecast ledger. It is stateless between
// calls and safe for concurrent use.
type Engine struct {
	transactions  TransactionStore
	registry      CategoryRegistry
	items         ItemStore
	manual        ManualEntryStore
	clearingLabel string
	defaultWeeks  int
}

// NewEngine wires the engine to its read-only collaborators. An empty
// clearingLabel or zero defaultWeeks selects the package defaults.
func NewEngine(transactions TransactionStore, registry CategoryRegistry, items ItemStore, manual ManualEntryStore, clearingLabel string, defaultWeeks int) *Engine {
	if clearingLabel == "" {
		clearingLabel = DefaultClearingLabel
	}
	if defaultWeeks <= 0 {
		defaultWeeks = DefaultWeeks
	}
	return &Engine{
		transactions:  transactions,
		registry:      registry,
		items:         items,
		manual:        manual,
		clearingLabel: clearingLabel,
		defaultWeeks:  defaultWeeks,
	}
}

// Compute produces the ordered weekly forecast for the requested window.
// Any collaborator read failure aborts the whole computation; no partial
// week list is ever returned.
func (e *Engine) Compute(ctx context.Context, req Request) ([]core.WeeklyForecast, error) {
	latestActual, hasActuals, err := e.transactions.LatestVerifiedDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest verified transaction: %w", err)
	}

	start, end, err := e.resolveWindow(req, latestActual, hasActuals)
	if err != nil {
		return nil, err
	}

	// The week of the most recent verified transaction is the boundary
	// between actual history and projected future.
	var latestActualWeek time.Time
	if hasActuals {
		latestActualWeek = WeekEnding(latestActual)
	}

	categories, err := e.registry.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("read category registry: %w", err)
	}
	catIndex := make(map[string]core.DisplayCategory, len(categories))
	for _, c := range categories {
		catIndex[c.Code] = c
	}

	led := newLedger(WeekEnding(start), WeekEnding(end))

	if err := e.foldActuals(ctx, led, catIndex, start, end); err != nil {
		return nil, err
	}
	if err := e.overlayARForecasts(ctx, led, catIndex, latestActualWeek); err != nil {
		return nil, err
	}
	if err := e.overlayRecurring(ctx, led, catIndex, start, end, latestActualWeek); err != nil {
		return nil, err
	}

	seed, ok, err := e.manual.LatestBalanceAsOf(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("read cash balance: %w", err)
	}
	if !ok {
		seed = core.CashBalance{} // no snapshot: chain starts at zero
	}

	return led.emit(seed.Balance), nil
}

// resolveWindow applies the window policy: explicit [start, end] when
// given, otherwise Weeks weeks ending at the latest actual week.
func (e *Engine) resolveWindow(req Request, latestActual time.Time, hasActuals bool) (time.Time, time.Time, error) {
	explicit := !req.Start.IsZero() || !req.End.IsZero()
	if explicit {
		if req.Start.IsZero() || req.End.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: both start and end are required", core.ErrInvalidWindow)
		}
		start, end := core.DateOnly(req.Start), core.DateOnly(req.End)
		if start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s after end %s",
				core.ErrInvalidWindow, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		return start, end, nil
	}

	if !hasActuals {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: no verified transactions to derive a window from", core.ErrInvalidWindow)
	}

	weeks := req.Weeks
	if weeks <= 0 {
		weeks = e.defaultWeeks
	}
	endWeek := WeekEnding(latestActual)
	startWeek := endWeek.AddDate(0, 0, -7*(weeks-1))
	return startWeek.AddDate(0, 0, -6), endWeek, nil
}

// foldActuals accumulates every verified transaction in the window into
// its week/category bucket. Categories in the AR display group are split
// by GL account into collections vs other revenue; transactions whose
// category is missing from the registry are skipped, not fatal.
func (e *Engine) foldActuals(ctx context.Context, led *ledger, catIndex map[string]core.DisplayCategory, start, end time.Time) error {
	txns, err := e.transactions.VerifiedInRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("read transactions: %w", err)
	}

	for _, tx := range txns {
		if !tx.Verified {
			// The store should filter these already; the engine enforces
			// the rule regardless of the caller.
			continue
		}
		cat, ok := catIndex[tx.CategoryCode]
		if !ok {
			slog.WarnContext(ctx, "Skipping transaction with unknown category",
				"transaction_id", tx.ID,
				"category_code", tx.CategoryCode)
			continue
		}

		meta := metaFor(cat)
		if cat.Group == ARGroup {
			if isReceivablesClearing(tx.GLAccount, e.clearingLabel) {
				meta.code = ARCollectionsCode
				meta.label = ARCollectionsLabel
			} else {
				meta.code = AROtherRevenueCode
				meta.label = AROtherRevenueLabel
			}
			meta.subLabel = ""
		}

		led.add(WeekEnding(tx.Date), meta, tx.Amount.Cents, 1, true)
	}
	return nil
}

// overlayARForecasts inserts manual AR estimates into weeks at or after
// the latest actual week, unless the week already holds actual
// collections (actuals take precedence, never double-count).
func (e *Engine) overlayARForecasts(ctx context.Context, led *ledger, catIndex map[string]core.DisplayCategory, latestActualWeek time.Time) error {
	entries, err := e.manual.ARForecasts(ctx)
	if err != nil {
		return fmt.Errorf("read AR forecasts: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	meta := arCollectionsMeta(catIndex)
	for _, entry := range entries {
		wk := WeekEnding(entry.WeekEnding)
		if !led.contains(wk) || wk.Before(latestActualWeek) {
			continue
		}
		if !arOverlayAllowed(led.buckets[wk]) {
			continue
		}
		led.add(wk, meta, entry.Amount.Cents, 0, false)
	}
	return nil
}

// overlayRecurring projects every active forecast item over the window.
// Generation per item is independent and runs concurrently; folding is
// sequential in item order so output stays deterministic.
func (e *Engine) overlayRecurring(ctx context.Context, led *ledger, catIndex map[string]core.DisplayCategory, start, end, latestActualWeek time.Time) error {
	items, err := e.items.ActiveItems(ctx)
	if err != nil {
		return fmt.Errorf("read forecast items: %w", err)
	}

	// Malformed rules are an input-validation failure: reject before any
	// generation runs rather than silently producing wrong dates.
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("forecast item %d (%s): %w", item.ID, item.Vendor, err)
		}
	}

	occurrences := make([][]time.Time, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			dates, err := Occurrences(item.Rule, start, end)
			if err != nil {
				return fmt.Errorf("generate dates for item %d: %w", item.ID, err)
			}
			occurrences[i] = dates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, item := range items {
		cat, ok := catIndex[item.CategoryCode]
		if !ok {
			slog.WarnContext(ctx, "Skipping forecast item with unknown category",
				"item_id", item.ID,
				"vendor", item.Vendor,
				"category_code", item.CategoryCode)
			continue
		}
		meta := metaFor(cat)
		for _, d := range occurrences[i] {
			if !d.After(latestActualWeek) {
				continue // projections start strictly after actual history
			}
			led.add(WeekEnding(d), meta, item.Amount.Cents, 1, false)
		}
	}
	return nil
}

// arCollectionsMeta derives display metadata for the synthetic AR
// collections bucket from the registry's AR group, falling back to a
// plain cash-in bucket when the group has no categories.
func arCollectionsMeta(catIndex map[string]core.DisplayCategory) bucketMeta {
	meta := bucketMeta{
		code:      ARCollectionsCode,
		group:     ARGroup,
		label:     ARCollectionsLabel,
		direction: core.CashIn,
	}
	found := false
	for _, c := range catIndex {
		if c.Group != ARGroup {
			continue
		}
		if !found || c.SortOrder < meta.sortOrder {
			meta.sortOrder = c.SortOrder
			meta.direction = c.Direction
			found = true
		}
	}
	return meta
}
