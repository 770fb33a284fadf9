/*
Package billing provides the core fee/tariff calculation engine.

PURPOSE:
  This package contains the types and algorithms that turn configured rate
  structures (area-based, flat-quantity, or progressive-tiered consumption)
  plus meter readings into a billed fee notice with VAT and proration.

KEY CONCEPTS IN THIS FILE (types.go):
  - FeeType: A billable concept (electricity, water, management fee)
  - FeeRateConfig / FeeTier: Versioned tiered tariff tables
  - QuantityRateConfig: Flat unit prices per item type
  - UtilityReading: Immutable meter-read events
  - FeeNotice / FeeDetail / FeeTierDetail: Computed billing output

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal everywhere money or consumption flows.
     Binary floats never touch monetary arithmetic.
  2. Immutability: Readings and tier detail snapshots are never edited.
     A draft notice is recomputed by full replacement, never patched.
  3. Type Safety: Strong typing for IDs prevents mixing apartment,
     fee type, and config identifiers.
  4. Purity: Calculation functions are synchronous and referentially
     transparent; all I/O lives behind the store interfaces.

USAGE:
  detail, err := billing.ComposeFeeDetail(billing.ComposeInput{
      FeeType:   electricity,
      Apartment: apt,
      Period:    cycle.Period(),
      Current:   &reading,
  })

SEE ALSO:
  - tiers.go: Progressive tier allocation
  - compose.go: Per-fee-type line item composition
  - aggregate.go: Full notice assembly
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FeeTypeID string
type RateConfigID string
type ApartmentID string
type ReadingID string
type NoticeID string

// =============================================================================
// CALCULATION TYPE - Tagged variant, matched exhaustively in compose.go
// =============================================================================

// CalculationType selects how a fee type's charge is computed.
type CalculationType string

const (
	// CalcArea charges defaultRate per square meter of apartment area.
	CalcArea CalculationType = "area"

	// CalcQuantity charges a flat unit rate per operator-supplied quantity
	// (parking slots, extra access cards).
	CalcQuantity CalculationType = "quantity"

	// CalcTiered charges metered consumption across a progressive tier table
	// (electricity, water).
	CalcTiered CalculationType = "tiered"
)

// =============================================================================
// CONFIGURATION ENTITIES - Created by administrators, versioned, soft-deactivated
// =============================================================================

// ConfigStatus gates which FeeRateConfig is in force for a fee type.
type ConfigStatus string

const (
	ConfigActive   ConfigStatus = "active"
	ConfigInactive ConfigStatus = "inactive"
)

// FeeType is a billable concept owning zero or more rate configurations.
//
// INVARIANT: at most one owned FeeRateConfig has status ConfigActive at any
// instant. The configuration store enforces this transactionally via
// ActivateRateConfig; the engine only observes it (see selector.go).
type FeeType struct {
	ID            FeeTypeID
	Name          string
	Calculation   CalculationType
	VATApplicable bool

	// DefaultRate is the per-square-meter rate for CalcArea fee types.
	DefaultRate decimal.Decimal

	// DefaultVATRate applies when no rate config carries its own VAT rate
	// (CalcArea and CalcQuantity).
	DefaultVATRate decimal.Decimal

	Active    bool
	ApplyDate time.Time

	// RateConfigs are versioned tier tables (CalcTiered only).
	RateConfigs []FeeRateConfig

	// QuantityConfigs are flat unit prices per item type (CalcQuantity only).
	// They have no active/inactive gate: all entries for distinct item types
	// participate simultaneously.
	QuantityConfigs []QuantityRateConfig
}

// FeeRateConfig is one versioned tariff table for a tiered fee type.
type FeeRateConfig struct {
	ID      RateConfigID
	Name    string
	VATRate decimal.Decimal

	// BVMTFee is the environmental-protection surcharge rate applied per
	// consumed unit alongside the base tier rates.
	BVMTFee decimal.Decimal

	UnitName  string // "kWh", "m3"
	ApplyDate time.Time
	Status    ConfigStatus
	Tiers     []FeeTier
}

// FeeTier is one band of a progressive tariff table.
//
// INVARIANTS (checked by ValidateTiers):
//   - Order is 1-based and contiguous
//   - tier 1 starts at 0
//   - bands are contiguous and non-overlapping
//   - only the final tier may be open-ended (UpperBound == nil)
type FeeTier struct {
	Order      int
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal // nil = open-ended, absorbs all remaining consumption
	UnitRate   decimal.Decimal
}

// Width returns the tier's capacity, or nil for an open-ended tier.
func (t FeeTier) Width() *decimal.Decimal {
	if t.UpperBound == nil {
		return nil
	}
	w := t.UpperBound.Sub(t.LowerBound)
	return &w
}

// QuantityRateConfig is a flat unit price for one item type.
type QuantityRateConfig struct {
	ID       RateConfigID
	ItemType string
	UnitRate decimal.Decimal
	VATRate  decimal.Decimal
}

// =============================================================================
// APARTMENT - Minimal record; the engine only needs the billable area
// =============================================================================

type Apartment struct {
	ID    ApartmentID
	Code  string
	Floor int
	Area  decimal.Decimal // square meters
}

// =============================================================================
// UTILITY READING - One immutable meter-read event
// =============================================================================

// UtilityReading records a meter value for (apartment, fee type) at a date.
// Created once per meter-read event, never edited afterward. Consumption is
// derived from the latest pair: current minus previous, which must be >= 0.
type UtilityReading struct {
	ID          ReadingID
	ApartmentID ApartmentID
	FeeTypeID   FeeTypeID
	Current     decimal.Decimal
	ReadingDate time.Time
}

// QuantityLine is an operator-supplied quantity for a CalcQuantity fee type
// (e.g., 2 motorbike slots). Quantities come from the caller, not meters.
type QuantityLine struct {
	ItemType string
	Quantity decimal.Decimal
}

// =============================================================================
// BILLING SETTINGS - External collaborator input, used only for due dates
// =============================================================================

type BillingSettings struct {
	ClosingDayOfMonth int
	PaymentDueDays    int // dueDate = issueDate + PaymentDueDays
}

// =============================================================================
// FEE NOTICE - Computed billing output for one (apartment, cycle)
// =============================================================================

// NoticeStatus is the fee notice lifecycle state.
// Only a draft notice may be recomputed; issued and canceled are frozen.
type NoticeStatus string

const (
	NoticeDraft    NoticeStatus = "draft"
	NoticeIssued   NoticeStatus = "issued"
	NoticeCanceled NoticeStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentNotApplicable PaymentStatus = "n/a"
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPaid          PaymentStatus = "paid"
)

// FeeNotice is the complete bill for one apartment and billing cycle.
type FeeNotice struct {
	ID          NoticeID
	ApartmentID ApartmentID
	Cycle       BillingCycle
	Status      NoticeStatus
	Payment     PaymentStatus
	IssueDate   *time.Time
	DueDate     *time.Time

	// Total = sum of gross costs + sum of VAT costs across all details.
	Total decimal.Decimal

	Details []FeeDetail

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeeDetail is one line item of a notice, for one fee type.
type FeeDetail struct {
	FeeTypeID   FeeTypeID
	FeeTypeName string
	Calculation CalculationType

	// Consumption is meter delta for tiered, operator quantity sum for
	// quantity, apartment area for area-based fee types.
	Consumption decimal.Decimal

	// PreviousReading stays nil on the first bill: missing history is
	// treated as a zero baseline but the output keeps the nil to flag it.
	PreviousReading *decimal.Decimal
	CurrentReading  *decimal.Decimal
	PreviousDate    *time.Time
	CurrentDate     *time.Time

	// Proration is the period-overlap fraction in [0,1].
	Proration decimal.Decimal

	// SubTotal is the pre-VAT, pre-surcharge amount (sum of tier subtotals
	// for tiered fee types).
	SubTotal decimal.Decimal

	// BVMTCost is the environmental surcharge contribution (tiered only).
	BVMTCost decimal.Decimal

	// GrossCost = SubTotal + BVMTCost. VAT is computed on this, exactly once.
	GrossCost decimal.Decimal

	VATRate decimal.Decimal
	VATCost decimal.Decimal

	// Total = GrossCost + VATCost.
	Total decimal.Decimal

	UnitName string

	// Tiers is the immutable allocation snapshot (tiered only).
	Tiers []FeeTierDetail
}

// FeeTierDetail is an immutable snapshot of one tier allocation. It exists
// only nested inside a FeeDetail and is never edited after creation.
type FeeTierDetail struct {
	Order int

	// Original configured bounds.
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal

	// Bounds after proration scaling (what the allocation actually ran on).
	ProratedLower decimal.Decimal
	ProratedUpper *decimal.Decimal

	UnitRate    decimal.Decimal
	Consumption decimal.Decimal // amount allocated to this tier
	SubTotal    decimal.Decimal
	UnitName    string
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses s, returning zero on malformed input.
// Intended for literals in presets and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalPtr returns a pointer to d. Convenience for optional tier bounds.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

// RoundMoney rounds to the smallest currency unit using round-half-up.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative amounts produced by this engine.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(0) }
