/*
store.go - Persistence interfaces for billing collaborators

PURPOSE:
  Defines the interfaces between the calculation engine and its external
  collaborators. The engine only ever READS configuration and metering
  data; it produces new notice records and never mutates its inputs.

KEY INTERFACES:
  ConfigStore:    Fee types with nested rate configs; owns the atomic
                  single-active transition
  ApartmentStore: Apartment records (the engine needs the billable area)
  ReadingStore:   Immutable meter-read events, chronological
  NoticeStore:    Computed notices (draft notices are saved by full
                  replacement, including their detail snapshots)
  SettingsStore:  Billing cycle settings for due-date computation

SINGLE-ACTIVE ENFORCEMENT:
  ActivateRateConfig MUST persist the activation and the sibling
  deactivations in one transaction, never as independent writes, so an
  aggregation running concurrently can never observe zero or multiple
  active configurations for a fee type.

IMPLEMENTATIONS:
  - billing/store/memory.go: In-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite-backed

SEE ALSO:
  - selector.go: Observes (does not enforce) the single-active invariant
*/
package billing

import "context"

// =============================================================================
// CONFIGURATION STORE
// =============================================================================

// ConfigStore supplies fee types with their nested rate configurations.
type ConfigStore interface {
	// ListFeeTypes returns all fee types with nested configs.
	ListFeeTypes(ctx context.Context) ([]FeeType, error)

	// GetFeeType returns one fee type with nested configs, or nil.
	GetFeeType(ctx context.Context, id FeeTypeID) (*FeeType, error)

	// SaveFeeType creates or updates a fee type and its configs.
	SaveFeeType(ctx context.Context, ft FeeType) error

	// ActivateRateConfig makes one rate config active and atomically
	// deactivates its siblings, returning the complete updated set.
	ActivateRateConfig(ctx context.Context, feeTypeID FeeTypeID, configID RateConfigID) ([]FeeRateConfig, error)
}

// =============================================================================
// APARTMENT STORE
// =============================================================================

type ApartmentStore interface {
	ListApartments(ctx context.Context) ([]Apartment, error)
	GetApartment(ctx context.Context, id ApartmentID) (*Apartment, error)
	SaveApartment(ctx context.Context, a Apartment) error
}

// =============================================================================
// READING STORE - Metering source
// =============================================================================

// ReadingStore supplies meter-read events. Readings are append-only:
// created once per meter-read event, immutable afterward.
type ReadingStore interface {
	// AppendReading persists a new reading. This is the only write.
	AppendReading(ctx context.Context, r UtilityReading) error

	// ListReadings returns readings for (apartment, fee type) ordered by
	// reading date ascending.
	ListReadings(ctx context.Context, apartmentID ApartmentID, feeTypeID FeeTypeID) ([]UtilityReading, error)
}

// =============================================================================
// NOTICE STORE
// =============================================================================

type NoticeStore interface {
	// SaveNotice persists a notice with its full detail and tier snapshot
	// set. Saving an existing draft replaces its details wholesale.
	SaveNotice(ctx context.Context, n FeeNotice) error

	GetNotice(ctx context.Context, id NoticeID) (*FeeNotice, error)
	ListNotices(ctx context.Context, apartmentID ApartmentID) ([]FeeNotice, error)

	// FindNotice returns the notice for (apartment, cycle), or nil.
	FindNotice(ctx context.Context, apartmentID ApartmentID, cycle BillingCycle) (*FeeNotice, error)
}

// =============================================================================
// SETTINGS STORE - Billing cycle settings collaborator
// =============================================================================

type SettingsStore interface {
	GetSettings(ctx context.Context) (BillingSettings, error)
	SaveSettings(ctx context.Context, s BillingSettings) error
}
