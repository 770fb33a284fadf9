/*
tiers.go - Progressive tier validation and allocation

PURPOSE:
  Walks an ordered tier table and allocates a consumption quantity across
  the bands, producing the per-tier amounts and subtotals that become the
  FeeTierDetail snapshot on a fee detail.

CRITICAL INVARIANTS:
  1. CONSERVATION: the allocated amounts always sum to the consumption.
  2. Each allocation lies within its tier's width.
  3. A gap or overlap between tiers is a configuration error, never a
     silent misallocation.

ALGORITHM:
  Walk tiers ascending by order. For a bounded tier,
      amountInTier = clamp(min(consumption, upper) - lower, 0, upper - lower)
  The final tier is open-ended and absorbs all remaining consumption.

METER WINDOWS:
  Metered billing places consumption by absolute meter position: a reading
  pair 30 -> 120 bills 20 units in a 0-50 band, not 50. ResolveTierWindow
  handles this as the difference of two from-zero resolutions.

SEE ALSO:
  - proration.go: Bounds may be prorated before allocation
  - compose.go: Converts allocations into FeeTierDetail snapshots
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateTiers checks the tier table invariants: 1-based contiguous order,
// first tier starting at zero, contiguous non-overlapping bounds, and only
// the final tier open-ended.
func ValidateTiers(configID RateConfigID, tiers []FeeTier) error {
	if len(tiers) == 0 {
		return &TierTableError{ConfigID: configID, Order: 0, Reason: "empty tier table"}
	}

	for i, t := range tiers {
		if t.Order != i+1 {
			return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "tier order not contiguous from 1"}
		}
		if t.UpperBound == nil && i != len(tiers)-1 {
			return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "only the final tier may be open-ended"}
		}
		if t.UpperBound != nil && !t.UpperBound.GreaterThan(t.LowerBound) {
			return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "upper bound not above lower bound"}
		}

		if i == 0 {
			if !t.LowerBound.IsZero() {
				return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "first tier does not start at zero"}
			}
			continue
		}

		prev := tiers[i-1]
		switch {
		case t.LowerBound.GreaterThan(*prev.UpperBound):
			return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "gap after previous tier"}
		case t.LowerBound.LessThan(*prev.UpperBound):
			return &TierTableError{ConfigID: configID, Order: t.Order, Reason: "overlap with previous tier"}
		}
	}
	return nil
}

// =============================================================================
// ALLOCATION
// =============================================================================

// TierAllocation is the result of allocating consumption to one tier.
type TierAllocation struct {
	Tier        FeeTier
	Consumption decimal.Decimal
	SubTotal    decimal.Decimal
}

// ResolveTiers allocates consumption across the tier table, ascending by
// tier order. The table must already pass ValidateTiers; consumption must
// be non-negative. Every tier gets an allocation entry, zero-amount ones
// included, so the snapshot records the full table it ran against.
func ResolveTiers(configID RateConfigID, tiers []FeeTier, consumption decimal.Decimal) ([]TierAllocation, error) {
	if err := ValidateTiers(configID, tiers); err != nil {
		return nil, err
	}
	if consumption.IsNegative() {
		return nil, &InvalidReadingError{Current: consumption}
	}

	out := make([]TierAllocation, len(tiers))
	for i, t := range tiers {
		var amount decimal.Decimal
		if t.UpperBound == nil {
			// Open-ended final tier absorbs everything above its lower bound.
			amount = decimal.Max(consumption.Sub(t.LowerBound), decimal.Zero)
		} else {
			amount = decimal.Min(consumption, *t.UpperBound).Sub(t.LowerBound)
			amount = clamp(amount, decimal.Zero, t.UpperBound.Sub(t.LowerBound))
		}
		out[i] = TierAllocation{
			Tier:        t,
			Consumption: amount,
			SubTotal:    amount.Mul(t.UnitRate),
		}
	}
	return out, nil
}

// ResolveTierWindow allocates the meter interval [previous, current] across
// the tier table. Tier placement follows the absolute meter positions: the
// slice of the interval overlapping each band is billed at that band's rate.
// Computed as the difference of two from-zero resolutions, so allocations
// always sum to current - previous and conservation carries over.
func ResolveTierWindow(configID RateConfigID, tiers []FeeTier, previous, current decimal.Decimal) ([]TierAllocation, error) {
	if current.LessThan(previous) {
		return nil, &InvalidReadingError{Previous: previous, Current: current}
	}

	atCurrent, err := ResolveTiers(configID, tiers, current)
	if err != nil {
		return nil, err
	}
	atPrevious, err := ResolveTiers(configID, tiers, previous)
	if err != nil {
		return nil, err
	}

	out := make([]TierAllocation, len(atCurrent))
	for i := range atCurrent {
		amount := atCurrent[i].Consumption.Sub(atPrevious[i].Consumption)
		out[i] = TierAllocation{
			Tier:        atCurrent[i].Tier,
			Consumption: amount,
			SubTotal:    amount.Mul(atCurrent[i].Tier.UnitRate),
		}
	}
	return out, nil
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
