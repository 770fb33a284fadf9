/*
proration.go - Period-overlap fractions and tier bound scaling

PURPOSE:
  Computes how much of a billing period a charge actually applies to, and
  applies that fraction the way each calculation type requires.

BOUND-SCALING SEMANTICS (the part that must not drift):
  For area-based fees the fraction scales the subtotal directly.
  For tiered fees the fraction scales the TIER BOUNDS, not the raw meter
  consumption and not the final subtotal. A 0-100 tier for a full month
  becomes 0-50 for a half month, which changes which tier an absolute
  consumption value lands in. Scaling the final subtotal instead would
  misattribute tier allocation whenever consumption is large relative to
  tier widths.

EXAMPLE:
  Tiers 0-50 @ 1500, 50+ @ 2000. Consumption 60 over half a month.
    Bound scaling:   tiers become 0-25 / 25+, so 25@1500 + 35@2000 = 107500
    Amount scaling:  (50@1500 + 10@2000) / 2 = 47500   <- wrong tier mix

SEE ALSO:
  - tiers.go: Allocation against (possibly prorated) bounds
  - compose.go: Chooses subtotal-scaling vs bound-scaling per type
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// PRORATION FRACTION
// =============================================================================

// Prorate returns the fraction of period covered by effective, in [0,1].
// Zero overlap yields zero; the caller still emits a zero-amount detail so
// the audit trail stays complete.
func Prorate(period, effective Period) (decimal.Decimal, error) {
	if !period.Valid() {
		return decimal.Zero, ErrInvalidPeriod
	}
	if !effective.Valid() {
		return decimal.Zero, ErrInvalidPeriod
	}

	overlap, ok := period.Intersect(effective)
	if !ok {
		return decimal.Zero, nil
	}

	total := decimal.NewFromInt(int64(period.Days()))
	covered := decimal.NewFromInt(int64(overlap.Days()))
	if covered.GreaterThanOrEqual(total) {
		return decimal.NewFromInt(1), nil
	}
	return covered.Div(total), nil
}

// =============================================================================
// TIER BOUND SCALING
// =============================================================================

// ScaleTierBounds returns a copy of tiers with every bound multiplied by
// fraction. Open-ended upper bounds stay open-ended. Original tiers are
// untouched; FeeTierDetail snapshots keep both the original and the
// prorated bounds.
func ScaleTierBounds(tiers []FeeTier, fraction decimal.Decimal) []FeeTier {
	if fraction.Equal(decimal.NewFromInt(1)) {
		out := make([]FeeTier, len(tiers))
		copy(out, tiers)
		return out
	}

	out := make([]FeeTier, len(tiers))
	for i, t := range tiers {
		scaled := FeeTier{
			Order:      t.Order,
			LowerBound: t.LowerBound.Mul(fraction),
			UnitRate:   t.UnitRate,
		}
		if t.UpperBound != nil {
			upper := t.UpperBound.Mul(fraction)
			scaled.UpperBound = &upper
		}
		out[i] = scaled
	}
	return out
}
