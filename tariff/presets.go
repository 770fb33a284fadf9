/*
Package tariff provides ready-made fee type configurations for apartment
building billing.

PURPOSE:
  Convenience builders that set up FeeType + rate configs according to
  typical management patterns. These are starting points; administrators
  normally adjust rates and tier boundaries to the building's actual
  contracts before activating a configuration.

AVAILABLE PRESETS:
  ResidentialElectricity: Progressive 6-tier household tariff
  ResidentialWater:       Progressive 3-tier tariff with BVMT surcharge
  ManagementFee:          Area-based monthly fee per square meter
  ParkingFee:             Flat quantity rates per vehicle type

EXAMPLE:
  ft := tariff.ResidentialElectricity("fee-elec", "cfg-elec-2026")
  // activate before use:
  configs, _ := billing.Activate(ft.RateConfigs, "cfg-elec-2026")
  ft.RateConfigs = configs

SEE ALSO:
  - billing/types.go: The configuration entities these presets build
  - factory/config.go: JSON-based configuration creation
*/
package tariff

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// TIERED PRESETS
// =============================================================================

// ResidentialElectricity returns a household electricity fee type with a
// progressive 6-tier tariff. The config is created inactive; activation is
// an explicit administrator step.
func ResidentialElectricity(id billing.FeeTypeID, configID billing.RateConfigID) billing.FeeType {
	return billing.FeeType{
		ID:             id,
		Name:           "Electricity",
		Calculation:    billing.CalcTiered,
		VATApplicable:  true,
		DefaultVATRate: billing.MustParseDecimal("0.10"),
		Active:         true,
		RateConfigs: []billing.FeeRateConfig{{
			ID:       configID,
			Name:     "Residential electricity tariff",
			VATRate:  billing.MustParseDecimal("0.10"),
			UnitName: "kWh",
			Status:   billing.ConfigInactive,
			Tiers: tierTable([]tierSpec{
				{0, 50, "1678"},
				{50, 100, "1734"},
				{100, 200, "2014"},
				{200, 300, "2536"},
				{300, 400, "2834"},
				{400, -1, "2927"},
			}),
		}},
	}
}

// ResidentialWater returns a household water fee type with a 3-tier tariff
// and an environmental-protection surcharge per cubic meter.
func ResidentialWater(id billing.FeeTypeID, configID billing.RateConfigID) billing.FeeType {
	return billing.FeeType{
		ID:             id,
		Name:           "Water",
		Calculation:    billing.CalcTiered,
		VATApplicable:  true,
		DefaultVATRate: billing.MustParseDecimal("0.05"),
		Active:         true,
		RateConfigs: []billing.FeeRateConfig{{
			ID:       configID,
			Name:     "Residential water tariff",
			VATRate:  billing.MustParseDecimal("0.05"),
			BVMTFee:  billing.MustParseDecimal("600"),
			UnitName: "m3",
			Status:   billing.ConfigInactive,
			Tiers: tierTable([]tierSpec{
				{0, 10, "5973"},
				{10, 20, "7052"},
				{20, -1, "8669"},
			}),
		}},
	}
}

// =============================================================================
// AREA AND QUANTITY PRESETS
// =============================================================================

// ManagementFee returns an area-based monthly management fee.
func ManagementFee(id billing.FeeTypeID, ratePerSquareMeter string) billing.FeeType {
	return billing.FeeType{
		ID:             id,
		Name:           "Management fee",
		Calculation:    billing.CalcArea,
		VATApplicable:  true,
		DefaultRate:    billing.MustParseDecimal(ratePerSquareMeter),
		DefaultVATRate: billing.MustParseDecimal("0.10"),
		Active:         true,
	}
}

// ParkingFee returns a quantity-based parking fee with flat monthly rates
// per vehicle type. All entries participate simultaneously; there is no
// active/inactive gate on quantity configs.
func ParkingFee(id billing.FeeTypeID) billing.FeeType {
	return billing.FeeType{
		ID:             id,
		Name:           "Parking",
		Calculation:    billing.CalcQuantity,
		VATApplicable:  true,
		DefaultVATRate: billing.MustParseDecimal("0.10"),
		Active:         true,
		QuantityConfigs: []billing.QuantityRateConfig{
			{ID: billing.RateConfigID(string(id) + "-bicycle"), ItemType: "bicycle", UnitRate: billing.MustParseDecimal("30000"), VATRate: billing.MustParseDecimal("0.10")},
			{ID: billing.RateConfigID(string(id) + "-motorbike"), ItemType: "motorbike", UnitRate: billing.MustParseDecimal("100000"), VATRate: billing.MustParseDecimal("0.10")},
			{ID: billing.RateConfigID(string(id) + "-car"), ItemType: "car", UnitRate: billing.MustParseDecimal("1200000"), VATRate: billing.MustParseDecimal("0.10")},
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type tierSpec struct {
	lower, upper int64 // upper -1 = open-ended
	rate         string
}

func tierTable(specs []tierSpec) []billing.FeeTier {
	tiers := make([]billing.FeeTier, len(specs))
	for i, s := range specs {
		t := billing.FeeTier{
			Order:      i + 1,
			LowerBound: decimal.NewFromInt(s.lower),
			UnitRate:   billing.MustParseDecimal(s.rate),
		}
		if s.upper >= 0 {
			t.UpperBound = billing.DecimalPtr(decimal.NewFromInt(s.upper))
		}
		tiers[i] = t
	}
	return tiers
}

// ApplyFrom stamps an apply date on every rate config of a fee type.
func ApplyFrom(ft billing.FeeType, at time.Time) billing.FeeType {
	ft.ApplyDate = at
	for i := range ft.RateConfigs {
		ft.RateConfigs[i].ApplyDate = at
	}
	return ft
}
