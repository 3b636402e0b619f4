package core

import "time"

// CategoryForecast is one week/category bucket in the computed ledger.
// Actual marks buckets built from verified transactions; projection
// buckets (recurring rules, manual AR estimates) carry Actual=false.
// Amounts are signed cents.
type CategoryForecast struct {
	CategoryCode     string `json:"category_code"`
	Group            string `json:"display_group"`
	Label            string `json:"label"`
	SubLabel         string `json:"sub_label,omitempty"`
	AmountCents      int64  `json:"amount_cents"`
	TransactionCount int    `json:"transaction_count"`
	Actual           bool   `json:"is_actual"`
	SortOrder        int    `json:"sort_order"`
}

// WeeklyForecast is one row of the projected ledger. The running-balance
// chain holds: EndingCash = BeginningCash + TotalInflows - TotalOutflows,
// and the next week's BeginningCash equals this week's EndingCash.
type WeeklyForecast struct {
	WeekEnding         time.Time          `json:"week_ending"`
	BeginningCashCents int64              `json:"beginning_cash_cents"`
	TotalInflowsCents  int64              `json:"total_inflows_cents"`
	TotalOutflowsCents int64              `json:"total_outflows_cents"`
	NetCashFlowCents   int64              `json:"net_cash_flow_cents"`
	EndingCashCents    int64              `json:"ending_cash_cents"`
	Categories         []CategoryForecast `json:"categories"`
}
