/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Configuration errors - malformed tier tables, active-config violations
  2. Reading errors - invalid meter data
  3. Lifecycle errors - operations against frozen notices

PROPAGATION:
  All errors are raised synchronously from pure calculation functions.
  The engine performs no I/O and never retries internally; retry/backoff
  belongs to the metering and persistence collaborators. No partial
  notice is ever produced when any component fails.

USAGE:
  if errors.Is(err, billing.ErrNoActiveConfiguration) {
      // administrator must activate a tariff first
  }

SEE ALSO:
  - selector.go: Raises active-configuration errors
  - tiers.go: Raises tier table errors
  - compose.go: Raises reading errors
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoActiveConfiguration is returned when a tiered fee type has no
	// rate configuration with status active at calculation time.
	ErrNoActiveConfiguration = errors.New("no active rate configuration")

	// ErrMultipleActiveConfigurations is returned when the single-active
	// invariant is observed violated: more than one config active at once.
	ErrMultipleActiveConfigurations = errors.New("multiple active rate configurations")

	// ErrInvalidTierTable is returned for tier tables with gaps, overlaps,
	// wrong ordering, or a non-zero first bound.
	ErrInvalidTierTable = errors.New("invalid tier table")

	// ErrInvalidReading is returned when consumption would be negative and
	// no first-bill fallback applies.
	ErrInvalidReading = errors.New("invalid meter reading")

	// ErrNoticeFrozen is returned when recomputing or mutating a notice
	// that is no longer in draft.
	ErrNoticeFrozen = errors.New("notice is frozen")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrConfigNotFound is returned when a referenced rate config doesn't exist.
	ErrConfigNotFound = errors.New("rate configuration not found")

	// ErrUnknownCalculationType is returned for an unhandled calculation
	// type. With the exhaustive switch in compose.go this indicates
	// corrupted configuration data, not a programming gap.
	ErrUnknownCalculationType = errors.New("unknown calculation type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TierTableError pinpoints the defect in a tier table.
type TierTableError struct {
	ConfigID RateConfigID
	Order    int
	Reason   string // "gap", "overlap", "not starting at zero", ...
}

func (e *TierTableError) Error() string {
	return fmt.Sprintf("tier table %s invalid at tier %d: %s", e.ConfigID, e.Order, e.Reason)
}

func (e *TierTableError) Unwrap() error { return ErrInvalidTierTable }

// InvalidReadingError reports a negative consumption.
type InvalidReadingError struct {
	ApartmentID ApartmentID
	FeeTypeID   FeeTypeID
	Previous    decimal.Decimal
	Current     decimal.Decimal
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("invalid reading for apartment %s fee type %s: current %v below previous %v",
		e.ApartmentID, e.FeeTypeID, e.Current, e.Previous)
}

func (e *InvalidReadingError) Unwrap() error { return ErrInvalidReading }

// ActiveConfigError reports how many configurations were observed active.
type ActiveConfigError struct {
	FeeTypeID FeeTypeID
	Count     int
}

func (e *ActiveConfigError) Error() string {
	return fmt.Sprintf("fee type %s has %d active rate configurations, expected exactly 1",
		e.FeeTypeID, e.Count)
}

func (e *ActiveConfigError) Unwrap() error {
	if e.Count == 0 {
		return ErrNoActiveConfiguration
	}
	return ErrMultipleActiveConfigurations
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or configuration state the client can fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidReading) ||
		errors.Is(err, ErrInvalidTierTable) ||
		errors.Is(err, ErrNoActiveConfiguration) ||
		errors.Is(err, ErrMultipleActiveConfigurations) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrNoticeFrozen)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}
