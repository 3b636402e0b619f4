package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly      Frequency = "weekly"
	SemiMonthly Frequency = "semi_monthly"
	Monthly     Frequency = "monthly"
	Quarterly   Frequency = "quarterly"
	SemiAnnual  Frequency = "semi_annual"
	Annual      Frequency = "annual"
)

const (
	MoveLater   BusinessDayPolicy = "move_later"
	MoveEarlier BusinessDayPolicy = "move_earlier"
)

const (
	CashIn  CashDirection = "Cashin"
	CashOut CashDirection = "Cashout"
)

type (
	// Frequency identifies how often a payment rule recurs.
	Frequency string

	// BusinessDayPolicy controls which way a weekend date is shifted.
	BusinessDayPolicy string

	// CashDirection tells whether a category counts toward inflows or
	// outflows, independent of the numeric sign of its amounts.
	CashDirection string

	// PaymentRule is a recurring obligation template. Anchors are
	// frequency-specific: a day-of-week for weekly, days-of-month for
	// monthly/semi-monthly, month+day pairs for the yearly shapes.
	PaymentRule struct {
		ID        int64
		Frequency Frequency
		Anchors   []int
		Policy    BusinessDayPolicy
	}

	// ForecastItem binds a vendor and category to a payment rule with an
	// estimated per-occurrence amount. Only active items feed the forecast.
	ForecastItem struct {
		ID           int64
		Vendor       string
		CategoryCode string
		Amount       Money
		Active       bool
		Rule         PaymentRule
	}

	// Transaction is a classified bank transaction: the raw imported row
	// joined with its category code and verification flag, always as a
	// fixed-arity record.
	Transaction struct {
		ID           int64
		Date         time.Time
		Amount       Money
		GLAccount    string
		CategoryCode string
		Verified     bool
	}

	// DisplayCategory is the registry row for a category code. SortOrder
	// drives presentation ordering within a week.
	DisplayCategory struct {
		Code      string
		Group     string
		Label     string
		SubLabel  string
		Direction CashDirection
		SortOrder int
	}

	// ARForecast is a manually entered receivables estimate for one week.
	ARForecast struct {
		WeekEnding time.Time
		Amount     Money
	}

	// CashBalance is a manually entered cash snapshot; the most recent one
	// at or before a window start seeds the running balance.
	CashBalance struct {
		AsOf    time.Time
		Balance Money
	}
)

var (
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrInvalidAnchors   = errors.New("invalid anchor parameters")
	ErrInvalidPolicy    = errors.New("invalid business day policy")
	ErrInvalidWindow    = errors.New("invalid forecast window")
	ErrEmptyCategory    = errors.New("empty category code")
)

// anchorShapes describes the expected anchor layout per frequency.
// Ranges are positional: quarterly is (day, starting month), annual is
// (month, day), semi-annual is (month, day, month, day).
var anchorShapes = map[Frequency][][2]int{
	Weekly:      {{0, 6}},
	SemiMonthly: {{1, 31}, {1, 31}},
	Monthly:     {{1, 31}},
	Quarterly:   {{1, 31}, {1, 12}},
	SemiAnnual:  {{1, 12}, {1, 31}, {1, 12}, {1, 31}},
	Annual:      {{1, 12}, {1, 31}},
}

// Validate checks anchor arity and value ranges for the rule's frequency.
// Date generation refuses to run on a rule that fails here.
func (r PaymentRule) Validate() error {
	shape, ok := anchorShapes[r.Frequency]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, r.Frequency)
	}

	if len(r.Anchors) != len(shape) {
		return fmt.Errorf("%w: %s expects %d values, got %d",
			ErrInvalidAnchors, r.Frequency, len(shape), len(r.Anchors))
	}
	for i, v := range r.Anchors {
		if v < shape[i][0] || v > shape[i][1] {
			return fmt.Errorf("%w: %s anchor %d out of range [%d,%d]: %d",
				ErrInvalidAnchors, r.Frequency, i, shape[i][0], shape[i][1], v)
		}
	}

	switch r.Policy {
	case MoveLater, MoveEarlier:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, r.Policy)
	}

	return nil
}

// Validate checks the parts of an item the engine depends on. A category
// code missing from the registry is a data-quality gap handled at fold
// time; an empty one is malformed input.
func (fi ForecastItem) Validate() error {
	if strings.TrimSpace(fi.CategoryCode) == "" {
		return ErrEmptyCategory
	}
	return fi.Rule.Validate()
}

// NewDate creates a midnight-UTC date from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates a timestamp to its midnight-UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
