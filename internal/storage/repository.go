// Package storage provides the SQLite-backed stores the forecast engine
// reads from: imported transactions, the category registry, forecast
// items with their payment rules, and the manual entries.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"runway/internal/core"
	"runway/internal/forecast"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type Repository struct {
	db *sql.DB
}

// Interface conformance with the engine's collaborator ports.
var (
	_ forecast.TransactionStore = (*Repository)(nil)
	_ forecast.CategoryRegistry = (*Repository)(nil)
	_ forecast.ItemStore        = (*Repository)(nil)
	_ forecast.ManualEntryStore = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// VerifiedInRange implements forecast.TransactionStore.
func (r *Repository) VerifiedInRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, txn_date, amount_cents, gl_account, category_code
		FROM transactions
		WHERE verified = 1 AND txn_date >= ? AND txn_date <= ?
		ORDER BY txn_date, id`,
		start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query verified transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			rawDate string
		)
		if err := rows.Scan(&tx.ID, &rawDate, &tx.Amount.Cents, &tx.GLAccount, &tx.CategoryCode); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date, err = time.Parse(dateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", rawDate, err)
		}
		tx.Verified = true
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// LatestVerifiedDate implements forecast.TransactionStore.
func (r *Repository) LatestVerifiedDate(ctx context.Context) (time.Time, bool, error) {
	var rawDate sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(txn_date) FROM transactions WHERE verified = 1`).Scan(&rawDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest verified date: %w", err)
	}
	if !rawDate.Valid || rawDate.String == "" {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(dateLayout, rawDate.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse latest verified date %q: %w", rawDate.String, err)
	}
	return d, true, nil
}

// Categories implements forecast.CategoryRegistry.
func (r *Repository) Categories(ctx context.Context) ([]core.DisplayCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, display_group, label, sub_label, cash_direction, sort_order
		FROM display_categories
		ORDER BY sort_order, code`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.DisplayCategory
	for rows.Next() {
		var c core.DisplayCategory
		var direction string
		if err := rows.Scan(&c.Code, &c.Group, &c.Label, &c.SubLabel, &direction, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Direction = core.CashDirection(direction)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// ActiveItems implements forecast.ItemStore. Items whose stored anchors
// cannot be parsed are skipped with a warning rather than failing the
// whole read; rule-level validation stays with the engine.
func (r *Repository) ActiveItems(ctx context.Context) ([]core.ForecastItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vendor_name, category_code, amount_cents, frequency, anchors, business_day_policy
		FROM forecast_items
		WHERE active = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query forecast items: %w", err)
	}
	defer rows.Close()

	var out []core.ForecastItem
	for rows.Next() {
		var (
			item       core.ForecastItem
			frequency  string
			rawAnchors string
			policy     string
		)
		if err := rows.Scan(&item.ID, &item.Vendor, &item.CategoryCode, &item.Amount.Cents,
			&frequency, &rawAnchors, &policy); err != nil {
			return nil, fmt.Errorf("scan forecast item: %w", err)
		}

		anchors, err := parseAnchors(rawAnchors)
		if err != nil {
			slog.WarnContext(ctx, "Skipping forecast item with unparsable anchors",
				"item_id", item.ID,
				"anchors", rawAnchors,
				"error", err)
			continue
		}

		item.Active = true
		item.Rule = core.PaymentRule{
			ID:        item.ID,
			Frequency: core.Frequency(frequency),
			Anchors:   anchors,
			Policy:    core.BusinessDayPolicy(policy),
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast items: %w", err)
	}
	return out, nil
}

// ARForecasts implements forecast.ManualEntryStore.
func (r *Repository) ARForecasts(ctx context.Context) ([]core.ARForecast, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT week_ending, amount_cents FROM ar_forecasts ORDER BY week_ending`)
	if err != nil {
		return nil, fmt.Errorf("query ar forecasts: %w", err)
	}
	defer rows.Close()

	var out []core.ARForecast
	for rows.Next() {
		var (
			f       core.ARForecast
			rawWeek string
		)
		if err := rows.Scan(&rawWeek, &f.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan ar forecast: %w", err)
		}
		f.WeekEnding, err = time.Parse(dateLayout, rawWeek)
		if err != nil {
			return nil, fmt.Errorf("parse ar forecast week %q: %w", rawWeek, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ar forecasts: %w", err)
	}
	return out, nil
}

// LatestBalanceAsOf implements forecast.ManualEntryStore.
func (r *Repository) LatestBalanceAsOf(ctx context.Context, asOf time.Time) (core.CashBalance, bool, error) {
	var (
		rawDate string
		cents   int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT as_of, balance_cents
		FROM cash_balances
		WHERE as_of <= ?
		ORDER BY as_of DESC, id DESC
		LIMIT 1`,
		asOf.Format(dateLayout)).Scan(&rawDate, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CashBalance{}, false, nil
	}
	if err != nil {
		return core.CashBalance{}, false, fmt.Errorf("query cash balance: %w", err)
	}

	d, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return core.CashBalance{}, false, fmt.Errorf("parse balance date %q: %w", rawDate, err)
	}
	return core.CashBalance{AsOf: d, Balance: core.Money{Cents: cents}}, true, nil
}

// UpsertARForecast writes a manual AR estimate for a week, normalizing
// the key through the canonical week-ending bucketer first.
func (r *Repository) UpsertARForecast(ctx context.Context, f core.ARForecast) error {
	week := forecast.WeekEnding(f.WeekEnding)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ar_forecasts (week_ending, amount_cents) VALUES (?, ?)
		ON CONFLICT(week_ending) DO UPDATE SET amount_cents = excluded.amount_cents`,
		week.Format(dateLayout), f.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert ar forecast: %w", err)
	}

	slog.InfoContext(ctx, "AR forecast saved",
		"week_ending", week.Format(dateLayout),
		"amount_cents", f.Amount.Cents)
	return nil
}

// InsertCashBalance records a cash snapshot.
func (r *Repository) InsertCashBalance(ctx context.Context, b core.CashBalance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cash_balances (as_of, balance_cents) VALUES (?, ?)`,
		core.DateOnly(b.AsOf).Format(dateLayout), b.Balance.Cents)
	if err != nil {
		return fmt.Errorf("insert cash balance: %w", err)
	}

	slog.InfoContext(ctx, "Cash balance saved",
		"as_of", core.DateOnly(b.AsOf).Format(dateLayout),
		"balance_cents", b.Balance.Cents)
	return nil
}

// parseAnchors decodes the comma-separated anchor column.
func parseAnchors(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("anchor %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
