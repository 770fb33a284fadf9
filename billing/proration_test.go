package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func period(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) billing.Period {
	return billing.Period{
		Start: time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC),
	}
}

func january2025() billing.Period {
	return period(2025, time.January, 1, 2025, time.January, 31)
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriod_Days_Inclusive(t *testing.T) {
	tests := []struct {
		name   string
		period billing.Period
		days   int
	}{
		{"full january", january2025(), 31},
		{"single day", period(2025, time.January, 15, 2025, time.January, 15), 1},
		{"february non-leap", period(2025, time.February, 1, 2025, time.February, 28), 28},
		{"february leap", period(2024, time.February, 1, 2024, time.February, 29), 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.period.Days(); got != tt.days {
				t.Errorf("expected %d days, got %d", tt.days, got)
			}
		})
	}
}

func TestParseCycle(t *testing.T) {
	cycle, err := billing.ParseCycle("2025-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := cycle.Period()
	if !p.Start.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected period start 2025-01-01, got %v", p.Start)
	}
	if !p.End.Equal(time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected period end 2025-01-31, got %v", p.End)
	}

	if _, err := billing.ParseCycle("2025-1"); err == nil {
		t.Error("expected error for malformed cycle")
	}
	if _, err := billing.ParseCycle("January 2025"); err == nil {
		t.Error("expected error for malformed cycle")
	}
}

// =============================================================================
// PRORATION FRACTION TESTS
// =============================================================================

func TestProrate_FullOverlap(t *testing.T) {
	// GIVEN: An effective range covering the whole cycle
	// WHEN: Prorating
	// THEN: The fraction is exactly 1

	fraction, err := billing.Prorate(january2025(), january2025())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fraction.Equal(dec("1")) {
		t.Errorf("expected fraction 1, got %v", fraction)
	}
}

func TestProrate_NoOverlap(t *testing.T) {
	fraction, err := billing.Prorate(january2025(), period(2025, time.March, 1, 2025, time.March, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fraction.IsZero() {
		t.Errorf("expected fraction 0, got %v", fraction)
	}
}

func TestProrate_PartialOverlap(t *testing.T) {
	// GIVEN: A tariff applying from April 16 in a 30-day month
	// WHEN: Prorating April against [Apr 16, Apr 30]
	// THEN: 15 covered days out of 30 gives 0.5

	april := period(2025, time.April, 1, 2025, time.April, 30)
	effective := period(2025, time.April, 16, 2025, time.April, 30)

	fraction, err := billing.Prorate(april, effective)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fraction.Equal(dec("0.5")) {
		t.Errorf("expected fraction 0.5, got %v", fraction)
	}
}

func TestProrate_EffectiveWiderThanPeriod(t *testing.T) {
	// An effective range that extends beyond the cycle still caps at 1.
	wide := period(2024, time.December, 1, 2025, time.February, 28)

	fraction, err := billing.Prorate(january2025(), wide)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fraction.Equal(dec("1")) {
		t.Errorf("expected fraction capped at 1, got %v", fraction)
	}
}

func TestProrate_InvalidPeriod(t *testing.T) {
	backwards := period(2025, time.January, 31, 2025, time.January, 1)
	_, err := billing.Prorate(backwards, january2025())
	if !errors.Is(err, billing.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

// =============================================================================
// TIER BOUND SCALING TESTS
// =============================================================================

func TestScaleTierBounds_HalvesBounds(t *testing.T) {
	// GIVEN: 0-50 / 50-100 / 100+ bands
	// WHEN: Scaling by 0.5
	// THEN: Bounds become 0-25 / 25-50 / 50+, rates untouched

	scaled := billing.ScaleTierBounds(threeBandTable(), dec("0.5"))

	if !scaled[0].UpperBound.Equal(dec("25")) {
		t.Errorf("expected tier 1 upper 25, got %v", scaled[0].UpperBound)
	}
	if !scaled[1].LowerBound.Equal(dec("25")) || !scaled[1].UpperBound.Equal(dec("50")) {
		t.Errorf("expected tier 2 bounds 25-50, got %v-%v", scaled[1].LowerBound, scaled[1].UpperBound)
	}
	if scaled[2].UpperBound != nil {
		t.Error("expected final tier to stay open-ended")
	}
	if !scaled[2].LowerBound.Equal(dec("50")) {
		t.Errorf("expected tier 3 lower 50, got %v", scaled[2].LowerBound)
	}
	for i, tier := range scaled {
		if !tier.UnitRate.Equal(threeBandTable()[i].UnitRate) {
			t.Errorf("tier %d: rate changed during scaling", i+1)
		}
	}
}

func TestScaleTierBounds_FractionOne_LeavesOriginalUntouched(t *testing.T) {
	original := threeBandTable()
	scaled := billing.ScaleTierBounds(original, dec("1"))

	scaled[0].LowerBound = dec("999")
	if !original[0].LowerBound.IsZero() {
		t.Error("scaling mutated the input table")
	}
}

func TestScaleTierBounds_ChangesTierMix(t *testing.T) {
	// GIVEN: 0-50 @ 1500, 50+ @ 2000 and consumption 60 over half a month
	// WHEN: Resolving against half-scaled bounds (0-25 / 25+)
	// THEN: 25@1500 + 35@2000 = 107500, not the amount-scaled 47500

	tiers := []billing.FeeTier{
		{Order: 1, LowerBound: dec("0"), UpperBound: decPtr("50"), UnitRate: dec("1500")},
		{Order: 2, LowerBound: dec("50"), UpperBound: nil, UnitRate: dec("2000")},
	}

	scaled := billing.ScaleTierBounds(tiers, dec("0.5"))
	allocations, err := billing.ResolveTiers("cfg-1", scaled, dec("60"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := allocations[0].SubTotal.Add(allocations[1].SubTotal)
	if !total.Equal(dec("107500")) {
		t.Errorf("expected 107500 from bound scaling, got %v", total)
	}
}
