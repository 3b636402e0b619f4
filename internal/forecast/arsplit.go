package forecast

import "strings"

// Pseudo-categories synthesized at fold time for the AR display group.
// Transactions hitting the receivables-clearing GL account become AR
// collections; everything else in the group is other revenue. No other
// display group is split this way.
const (
	ARGroup = "AR"

	ARCollectionsCode  = "ar_collections"
	ARCollectionsLabel = "AR Collections"

	AROtherRevenueCode  = "ar_other_revenue"
	AROtherRevenueLabel = "Other Revenue"

	// DefaultClearingLabel is matched against GL account labels when no
	// explicit clearing account is configured.
	DefaultClearingLabel = "Accounts Receivable"
)

// isReceivablesClearing reports whether a transaction's GL account label
// identifies it as a receivables-clearing entry. Matching is a
// case-insensitive substring test so "1200 · Accounts Receivable" and
// plain "accounts receivable" both qualify.
func isReceivablesClearing(glAccount, clearingLabel string) bool {
	if clearingLabel == "" {
		clearingLabel = DefaultClearingLabel
	}
	return strings.Contains(strings.ToLower(glAccount), strings.ToLower(clearingLabel))
}

// arOverlayAllowed reports whether a manual AR forecast may be inserted
// into a week's buckets. Actual collections always win: once a verified
// ar_collections bucket exists for the week, the overlay is skipped so
// the same receivables are never counted twice.
func arOverlayAllowed(buckets map[string]*bucket) bool {
	b, ok := buckets[ARCollectionsCode]
	return !ok || !b.actual
}
