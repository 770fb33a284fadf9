/*
compose.go - Fee detail composition per fee type

PURPOSE:
  Combines the selector, proration calculator, tier resolver, and VAT
  applier into one line-item record for a single fee type. This is where
  the calculation-type variant is matched exhaustively:

    AREA:     subTotal = defaultRate * apartment.area * proration
    QUANTITY: subTotal = sum(unitRate[itemType] * quantity), no proration
    TIERED:   consumption = current - previous, bounds prorated, the
              meter window [previous, current] resolved against the
              prorated bounds

TIER PLACEMENT:
  Tiered allocation follows absolute meter positions: a reading pair
  30 -> 120 against a 0-50 band bills 20 units at the band rate, the
  20 between positions 30 and 50. The first bill (previous nil) starts
  the window at zero.

FIRST-BILL POLICY:
  A tiered fee type with no previous reading treats the baseline as zero
  but keeps PreviousReading nil in the output to flag the case.

VAT:
  Applied once per detail on the gross cost (tier sum + BVMT surcharge),
  never per tier. A fee type with VATApplicable false forces the rate to
  zero regardless of configuration.

SEE ALSO:
  - aggregate.go: Calls this once per selected fee type
  - selector.go / tiers.go / proration.go / vat.go: The component parts
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPOSE INPUT
// =============================================================================

// ComposeInput carries everything one fee detail needs. All fields are
// plain data: the composer performs no I/O.
type ComposeInput struct {
	FeeType   FeeType
	Apartment Apartment

	// Period is the billing-cycle period.
	Period Period

	// Effective restricts the charge to part of the period (move-in,
	// tariff apply date). Nil means the full period applies.
	Effective *Period

	// Previous and Current are the latest reading pair for tiered fee
	// types. Previous nil triggers the first-bill policy; Current nil
	// yields a zero-consumption detail.
	Previous *UtilityReading
	Current  *UtilityReading

	// Quantities are operator-supplied lines for quantity fee types.
	Quantities []QuantityLine
}

func (in ComposeInput) effectivePeriod() Period {
	if in.Effective != nil {
		return *in.Effective
	}
	return in.Period
}

// =============================================================================
// COMPOSER
// =============================================================================

// ComposeFeeDetail builds the line item for one fee type. The switch over
// calculation types is exhaustive; an unknown type is an error, never a
// silently skipped detail.
func ComposeFeeDetail(in ComposeInput) (FeeDetail, error) {
	fraction, err := Prorate(in.Period, in.effectivePeriod())
	if err != nil {
		return FeeDetail{}, err
	}

	switch in.FeeType.Calculation {
	case CalcArea:
		return composeArea(in, fraction), nil
	case CalcQuantity:
		return composeQuantity(in)
	case CalcTiered:
		return composeTiered(in, fraction)
	default:
		return FeeDetail{}, fmt.Errorf("fee type %s: %w: %q",
			in.FeeType.ID, ErrUnknownCalculationType, in.FeeType.Calculation)
	}
}

// effectiveVATRate forces zero when the fee type opts out of VAT.
func effectiveVATRate(ft FeeType, configured decimal.Decimal) decimal.Decimal {
	if !ft.VATApplicable {
		return decimal.Zero
	}
	return configured
}

// =============================================================================
// AREA - defaultRate per square meter, proration scales the subtotal
// =============================================================================

func composeArea(in ComposeInput, fraction decimal.Decimal) FeeDetail {
	gross := RoundMoney(in.FeeType.DefaultRate.Mul(in.Apartment.Area).Mul(fraction))
	rate := effectiveVATRate(in.FeeType, in.FeeType.DefaultVATRate)
	vat := ApplyVAT(gross, rate)

	return FeeDetail{
		FeeTypeID:   in.FeeType.ID,
		FeeTypeName: in.FeeType.Name,
		Calculation: CalcArea,
		Consumption: in.Apartment.Area,
		Proration:   fraction,
		SubTotal:    gross,
		GrossCost:   gross,
		VATRate:     rate,
		VATCost:     vat.VATCost,
		Total:       vat.Total,
		UnitName:    "m2",
	}
}

// =============================================================================
// QUANTITY - flat unit price per operator-supplied line, no meter proration
// =============================================================================

func composeQuantity(in ComposeInput) (FeeDetail, error) {
	one := decimal.NewFromInt(1)

	var (
		gross       decimal.Decimal
		vatRaw      decimal.Decimal
		consumption decimal.Decimal
	)
	for _, line := range in.Quantities {
		cfg := QuantityConfigFor(in.FeeType.QuantityConfigs, line.ItemType)
		if cfg == nil {
			return FeeDetail{}, fmt.Errorf("fee type %s item %q: %w",
				in.FeeType.ID, line.ItemType, ErrConfigNotFound)
		}
		lineGross := cfg.UnitRate.Mul(line.Quantity)
		gross = gross.Add(lineGross)
		vatRaw = vatRaw.Add(lineGross.Mul(cfg.VATRate))
		consumption = consumption.Add(line.Quantity)
	}

	gross = RoundMoney(gross)

	// Each quantity config carries its own VAT rate; the costs are summed
	// and rounded once at the detail level. The stored rate is the blended
	// effective rate for presentation.
	var vatCost, blended decimal.Decimal
	if in.FeeType.VATApplicable && gross.IsPositive() {
		vatCost = RoundMoney(vatRaw)
		blended = vatRaw.Div(gross).Round(4)
	}

	return FeeDetail{
		FeeTypeID:   in.FeeType.ID,
		FeeTypeName: in.FeeType.Name,
		Calculation: CalcQuantity,
		Consumption: consumption,
		Proration:   one,
		SubTotal:    gross,
		GrossCost:   gross,
		VATRate:     blended,
		VATCost:     vatCost,
		Total:       gross.Add(vatCost),
	}, nil
}

// =============================================================================
// TIERED - metered consumption across prorated tier bounds
// =============================================================================

func composeTiered(in ComposeInput, fraction decimal.Decimal) (FeeDetail, error) {
	config, err := SelectEffectiveConfig(in.FeeType.ID, in.FeeType.RateConfigs)
	if err != nil {
		return FeeDetail{}, err
	}
	if err := ValidateTiers(config.ID, config.Tiers); err != nil {
		return FeeDetail{}, err
	}

	detail := FeeDetail{
		FeeTypeID:   in.FeeType.ID,
		FeeTypeName: in.FeeType.Name,
		Calculation: CalcTiered,
		Proration:   fraction,
		UnitName:    config.UnitName,
	}

	var previous, current decimal.Decimal
	if in.Current != nil {
		current = in.Current.Current
		detail.CurrentReading = DecimalPtr(in.Current.Current)
		d := in.Current.ReadingDate
		detail.CurrentDate = &d
	}
	if in.Previous != nil {
		previous = in.Previous.Current
		detail.PreviousReading = DecimalPtr(in.Previous.Current)
		d := in.Previous.ReadingDate
		detail.PreviousDate = &d
	}

	consumption := current.Sub(previous)
	if consumption.IsNegative() {
		return FeeDetail{}, &InvalidReadingError{
			ApartmentID: in.Apartment.ID,
			FeeTypeID:   in.FeeType.ID,
			Previous:    previous,
			Current:     current,
		}
	}
	detail.Consumption = consumption

	// Zero overlap: the detail still exists with a zero subtotal for audit
	// completeness. Resolving against all-zero bounds would bill the whole
	// consumption at the top rate, so skip allocation entirely.
	if fraction.IsZero() {
		detail.VATRate = effectiveVATRate(in.FeeType, config.VATRate)
		return detail, nil
	}

	scaled := ScaleTierBounds(config.Tiers, fraction)
	allocations, err := ResolveTierWindow(config.ID, scaled, previous, current)
	if err != nil {
		return FeeDetail{}, err
	}

	var subTotal decimal.Decimal
	details := make([]FeeTierDetail, len(allocations))
	for i, alloc := range allocations {
		original := config.Tiers[i]
		details[i] = FeeTierDetail{
			Order:         alloc.Tier.Order,
			LowerBound:    original.LowerBound,
			UpperBound:    original.UpperBound,
			ProratedLower: alloc.Tier.LowerBound,
			ProratedUpper: alloc.Tier.UpperBound,
			UnitRate:      alloc.Tier.UnitRate,
			Consumption:   alloc.Consumption,
			SubTotal:      alloc.SubTotal,
			UnitName:      config.UnitName,
		}
		subTotal = subTotal.Add(alloc.SubTotal)
	}

	detail.Tiers = details
	detail.SubTotal = RoundMoney(subTotal)
	detail.BVMTCost = RoundMoney(consumption.Mul(config.BVMTFee))
	detail.GrossCost = detail.SubTotal.Add(detail.BVMTCost)

	detail.VATRate = effectiveVATRate(in.FeeType, config.VATRate)
	vat := ApplyVAT(detail.GrossCost, detail.VATRate)
	detail.VATCost = vat.VATCost
	detail.Total = vat.Total

	return detail, nil
}
