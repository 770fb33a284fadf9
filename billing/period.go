/*
period.go - Billing cycles and calculation periods

PURPOSE:
  A fee notice is always computed for a billing cycle: one calendar month,
  written "YYYY-MM". This file parses cycles and exposes the Period type
  that proration runs on.

DAY-COUNT CONVENTION:
  Days are counted inclusively on both ends at day granularity. A full
  January period therefore has 31 days and prorating January against
  itself yields exactly 1. All proration arithmetic uses actual calendar
  days in the cycle month, not a fixed 30-day basis.

SEE ALSO:
  - proration.go: Overlap fraction and tier bound scaling
  - aggregate.go: Builds the period from the requested cycle
*/
package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// BILLING CYCLE - "YYYY-MM"
// =============================================================================

type BillingCycle string

// ParseCycle validates and normalizes a "YYYY-MM" cycle string.
func ParseCycle(s string) (BillingCycle, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("invalid billing cycle %q (use YYYY-MM): %w", s, err)
	}
	return BillingCycle(t.Format("2006-01")), nil
}

// Period returns the calendar-month period for the cycle.
func (c BillingCycle) Period() Period {
	t, err := time.Parse("2006-01", string(c))
	if err != nil {
		return Period{}
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return Period{Start: start, End: end}
}

func (c BillingCycle) String() string { return string(c) }

// =============================================================================
// PERIOD - The time boundary proration runs on
// =============================================================================

// Period is a day-granular [Start, End] range, both ends inclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the period is well-formed.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !day(p.End).Before(day(p.Start))
}

// Days returns the inclusive day count of the period.
func (p Period) Days() int {
	return int(day(p.End).Sub(day(p.Start)).Hours()/24) + 1
}

// Contains reports whether t falls within the period at day granularity.
func (p Period) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(day(p.Start)) && !d.After(day(p.End))
}

// Intersect returns the overlap of two periods and whether it is non-empty.
func (p Period) Intersect(other Period) (Period, bool) {
	start := day(p.Start)
	if day(other.Start).After(start) {
		start = day(other.Start)
	}
	end := day(p.End)
	if day(other.End).Before(end) {
		end = day(other.End)
	}
	if end.Before(start) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// day truncates to UTC day granularity.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
