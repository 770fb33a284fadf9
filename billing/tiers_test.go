package billing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return billing.MustParseDecimal(s)
}

func decPtr(s string) *decimal.Decimal {
	d := billing.MustParseDecimal(s)
	return &d
}

// threeBandTable is 0-50 @ 1500, 50-100 @ 2000, 100+ @ 3000.
func threeBandTable() []billing.FeeTier {
	return []billing.FeeTier{
		{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
		{Order: 2, LowerBound: dec("50"), UpperBound: decPtr("100"), UnitRate: dec("2000")},
		{Order: 3, LowerBound: dec("100"), UpperBound: nil, UnitRate: dec("3000")},
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateTiers_WellFormedTable(t *testing.T) {
	if err := billing.ValidateTiers("cfg-1", threeBandTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTiers_EmptyTable(t *testing.T) {
	err := billing.ValidateTiers("cfg-1", nil)
	if !errors.Is(err, billing.ErrInvalidTierTable) {
		t.Errorf("expected ErrInvalidTierTable, got %v", err)
	}
}

func TestValidateTiers_RejectsDefects(t *testing.T) {
	tests := []struct {
		name  string
		tiers []billing.FeeTier
	}{
		{
			name: "first tier not starting at zero",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("10"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
				{Order: 2, LowerBound: dec("50"), UpperBound: nil, UnitRate: dec("2000")},
			},
		},
		{
			name: "gap between tiers",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
				{Order: 2, LowerBound: dec("60"), UpperBound: nil, UnitRate: dec("2000")},
			},
		},
		{
			name: "overlap between tiers",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
				{Order: 2, LowerBound: dec("40"), UpperBound: nil, UnitRate: dec("2000")},
			},
		},
		{
			name: "non-contiguous order",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
				{Order: 3, LowerBound: dec("50"), UpperBound: nil, UnitRate: dec("2000")},
			},
		},
		{
			name: "open-ended tier in the middle",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("0"), UpperBound: nil, UnitRate: dec("1500")},
				{Order: 2, LowerBound: dec("50"), UpperBound: decPtr("100"), UnitRate: dec("2000")},
			},
		},
		{
			name: "upper bound not above lower bound",
			tiers: []billing.FeeTier{
				{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("0"), UnitRate: dec("1500")},
				{Order: 2, LowerBound: dec("0"), UpperBound: nil, UnitRate: dec("2000")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := billing.ValidateTiers("cfg-1", tt.tiers)
			if !errors.Is(err, billing.ErrInvalidTierTable) {
				t.Errorf("expected ErrInvalidTierTable, got %v", err)
			}
			var tierErr *billing.TierTableError
			if !errors.As(err, &tierErr) {
				t.Errorf("expected *TierTableError, got %T", err)
			}
		})
	}
}

// =============================================================================
// ALLOCATION TESTS
// =============================================================================

func TestResolveTiers_ConsumptionSpanningThreeBands(t *testing.T) {
	// GIVEN: 0-50 @ 1500, 50-100 @ 2000, 100+ @ 3000
	// WHEN: Allocating 120 units
	// THEN: 50 in tier 1, 50 in tier 2, 20 in tier 3

	allocations, err := billing.ResolveTiers("cfg-1", threeBandTable(), dec("120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocations))
	}

	expected := []struct {
		consumption string
		subTotal    string
	}{
		{"50", "75000"},
		{"50", "100000"},
		{"20", "60000"},
	}
	for i, want := range expected {
		if !allocations[i].Consumption.Equal(dec(want.consumption)) {
			t.Errorf("tier %d: expected consumption %s, got %v", i+1, want.consumption, allocations[i].Consumption)
		}
		if !allocations[i].SubTotal.Equal(dec(want.subTotal)) {
			t.Errorf("tier %d: expected subtotal %s, got %v", i+1, want.subTotal, allocations[i].SubTotal)
		}
	}
}

func TestResolveTiers_ConsumptionInsideFirstBand(t *testing.T) {
	// GIVEN: The three-band table
	// WHEN: Allocating 30 units
	// THEN: Everything lands in tier 1; tiers 2 and 3 record zero entries

	allocations, err := billing.ResolveTiers("cfg-1", threeBandTable(), dec("30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocations) != 3 {
		t.Fatalf("expected zero-amount entries for untouched tiers, got %d entries", len(allocations))
	}
	if !allocations[0].Consumption.Equal(dec("30")) {
		t.Errorf("expected 30 in tier 1, got %v", allocations[0].Consumption)
	}
	if !allocations[1].Consumption.IsZero() || !allocations[2].Consumption.IsZero() {
		t.Errorf("expected zero in tiers 2 and 3, got %v and %v",
			allocations[1].Consumption, allocations[2].Consumption)
	}
}

func TestResolveTiers_ExactBoundary(t *testing.T) {
	// GIVEN: The three-band table
	// WHEN: Allocating exactly 50 units (the tier 1 upper bound)
	// THEN: Tier 1 is full, tier 2 gets nothing

	allocations, err := billing.ResolveTiers("cfg-1", threeBandTable(), dec("50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allocations[0].Consumption.Equal(dec("50")) {
		t.Errorf("expected 50 in tier 1, got %v", allocations[0].Consumption)
	}
	if !allocations[1].Consumption.IsZero() {
		t.Errorf("expected 0 in tier 2, got %v", allocations[1].Consumption)
	}
}

func TestResolveTiers_ZeroConsumption(t *testing.T) {
	allocations, err := billing.ResolveTiers("cfg-1", threeBandTable(), decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, alloc := range allocations {
		if !alloc.Consumption.IsZero() {
			t.Errorf("tier %d: expected zero consumption, got %v", i+1, alloc.Consumption)
		}
	}
}

func TestResolveTiers_NegativeConsumption(t *testing.T) {
	_, err := billing.ResolveTiers("cfg-1", threeBandTable(), dec("-5"))
	if !errors.Is(err, billing.ErrInvalidReading) {
		t.Errorf("expected ErrInvalidReading, got %v", err)
	}
}

func TestResolveTierWindow_PlacesByMeterPosition(t *testing.T) {
	// GIVEN: The three-band table and a reading pair 30 -> 120
	// WHEN: Allocating the meter window
	// THEN: 20 units land in tier 1 (positions 30-50), 50 in tier 2,
	//       20 in tier 3 (positions 100-120)

	allocations, err := billing.ResolveTierWindow("cfg-1", threeBandTable(), dec("30"), dec("120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []struct {
		consumption string
		subTotal    string
	}{
		{"20", "30000"},
		{"50", "100000"},
		{"20", "60000"},
	}
	for i, want := range expected {
		if !allocations[i].Consumption.Equal(dec(want.consumption)) {
			t.Errorf("tier %d: expected consumption %s, got %v", i+1, want.consumption, allocations[i].Consumption)
		}
		if !allocations[i].SubTotal.Equal(dec(want.subTotal)) {
			t.Errorf("tier %d: expected subtotal %s, got %v", i+1, want.subTotal, allocations[i].SubTotal)
		}
	}
}

func TestResolveTierWindow_ZeroPreviousMatchesFromZero(t *testing.T) {
	window, err := billing.ResolveTierWindow("cfg-1", threeBandTable(), decimal.Zero, dec("120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromZero, err := billing.ResolveTiers("cfg-1", threeBandTable(), dec("120"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range window {
		if !window[i].Consumption.Equal(fromZero[i].Consumption) {
			t.Errorf("tier %d: window %v != from-zero %v",
				i+1, window[i].Consumption, fromZero[i].Consumption)
		}
	}
}

func TestResolveTierWindow_BackwardsWindow(t *testing.T) {
	_, err := billing.ResolveTierWindow("cfg-1", threeBandTable(), dec("120"), dec("30"))
	if !errors.Is(err, billing.ErrInvalidReading) {
		t.Errorf("expected ErrInvalidReading, got %v", err)
	}
}

func TestResolveTierWindow_Conservation(t *testing.T) {
	pairs := [][2]string{{"0", "0"}, {"30", "120"}, {"49", "51"}, {"100", "100"}, {"250", "400.5"}}
	for _, p := range pairs {
		allocations, err := billing.ResolveTierWindow("cfg-1", threeBandTable(), dec(p[0]), dec(p[1]))
		if err != nil {
			t.Fatalf("window [%s,%s]: unexpected error: %v", p[0], p[1], err)
		}
		sum := decimal.Zero
		for _, alloc := range allocations {
			sum = sum.Add(alloc.Consumption)
		}
		if !sum.Equal(dec(p[1]).Sub(dec(p[0]))) {
			t.Errorf("window [%s,%s]: allocations sum to %v", p[0], p[1], sum)
		}
	}
}

func TestResolveTiers_Conservation(t *testing.T) {
	// GIVEN: The three-band table
	// WHEN: Allocating a range of consumption values
	// THEN: Allocated amounts always sum back to the consumption

	for _, c := range []string{"0", "1", "49.5", "50", "50.1", "99", "100", "150", "1234.567"} {
		consumption := dec(c)
		allocations, err := billing.ResolveTiers("cfg-1", threeBandTable(), consumption)
		if err != nil {
			t.Fatalf("consumption %s: unexpected error: %v", c, err)
		}

		sum := decimal.Zero
		for _, alloc := range allocations {
			sum = sum.Add(alloc.Consumption)
		}
		if !sum.Equal(consumption) {
			t.Errorf("consumption %s: allocations sum to %v", c, sum)
		}
	}
}
