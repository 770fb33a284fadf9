/*
Package factory provides JSON to Go fee configuration conversion.

PURPOSE:
  Converts JSON fee type definitions into billing.FeeType records with
  nested rate configurations. This enables tariff configuration without
  code changes - administrators define fee types in JSON through the
  admin API, and the factory creates the proper Go structs.

JSON SCHEMA:
  {
    "id": "fee-electricity",
    "name": "Electricity",
    "calculation": "tiered",
    "vat_applicable": true,
    "default_vat_rate": "0.10",
    "rate_configs": [
      {
        "id": "cfg-2026",
        "name": "2026 tariff",
        "vat_rate": "0.10",
        "bvmt_fee": "0",
        "unit_name": "kWh",
        "apply_date": "2026-01-01",
        "tiers": [
          {"order": 1, "lower": "0", "upper": "50", "rate": "1678"},
          {"order": 2, "lower": "50", "rate": "1734"}
        ]
      }
    ]
  }

KEY FEATURES:
  - Validates structure, calculation type, and tier tables
  - All rates parsed as decimals; floats never enter monetary fields
  - New rate configs always land inactive; activation is a separate,
    explicit state transition

SEE ALSO:
  - billing/types.go: Target types
  - billing/tiers.go: Tier table validation reused here
  - tariff/presets.go: Go-based preset configurations
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FeeTypeJSON is the JSON representation of a fee type.
type FeeTypeJSON struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Calculation    string               `json:"calculation"` // area, quantity, tiered
	VATApplicable  bool                 `json:"vat_applicable"`
	DefaultRate    string               `json:"default_rate,omitempty"`
	DefaultVATRate string               `json:"default_vat_rate,omitempty"`
	ApplyDate      string               `json:"apply_date,omitempty"` // YYYY-MM-DD
	RateConfigs    []RateConfigJSON     `json:"rate_configs,omitempty"`
	QuantityRates  []QuantityConfigJSON `json:"quantity_rates,omitempty"`
}

// RateConfigJSON represents one versioned tier table.
type RateConfigJSON struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	VATRate   string     `json:"vat_rate,omitempty"`
	BVMTFee   string     `json:"bvmt_fee,omitempty"`
	UnitName  string     `json:"unit_name"`
	ApplyDate string     `json:"apply_date,omitempty"`
	Tiers     []TierJSON `json:"tiers"`
}

// TierJSON represents one tier band. A missing upper bound marks the
// open-ended final tier.
type TierJSON struct {
	Order int    `json:"order"`
	Lower string `json:"lower"`
	Upper string `json:"upper,omitempty"`
	Rate  string `json:"rate"`
}

// QuantityConfigJSON represents one flat unit price.
type QuantityConfigJSON struct {
	ID       string `json:"id"`
	ItemType string `json:"item_type"`
	UnitRate string `json:"unit_rate"`
	VATRate  string `json:"vat_rate,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory { return &ConfigFactory{} }

// ParseFeeType converts a JSON document into a billing.FeeType, validating
// the calculation type and every tier table.
func (f *ConfigFactory) ParseFeeType(raw []byte) (billing.FeeType, error) {
	var doc FeeTypeJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return billing.FeeType{}, fmt.Errorf("invalid fee type JSON: %w", err)
	}
	return f.FromJSON(doc)
}

// FromJSON converts an already-decoded document.
func (f *ConfigFactory) FromJSON(doc FeeTypeJSON) (billing.FeeType, error) {
	if doc.ID == "" {
		return billing.FeeType{}, fmt.Errorf("fee type id is required")
	}
	if doc.Name == "" {
		return billing.FeeType{}, fmt.Errorf("fee type name is required")
	}

	calc := billing.CalculationType(doc.Calculation)
	switch calc {
	case billing.CalcArea, billing.CalcQuantity, billing.CalcTiered:
	default:
		return billing.FeeType{}, fmt.Errorf("fee type %s: %w: %q",
			doc.ID, billing.ErrUnknownCalculationType, doc.Calculation)
	}

	ft := billing.FeeType{
		ID:            billing.FeeTypeID(doc.ID),
		Name:          doc.Name,
		Calculation:   calc,
		VATApplicable: doc.VATApplicable,
		Active:        true,
	}

	var err error
	if ft.DefaultRate, err = parseRate(doc.DefaultRate, "default_rate"); err != nil {
		return billing.FeeType{}, err
	}
	if ft.DefaultVATRate, err = parseRate(doc.DefaultVATRate, "default_vat_rate"); err != nil {
		return billing.FeeType{}, err
	}
	if ft.ApplyDate, err = parseDate(doc.ApplyDate); err != nil {
		return billing.FeeType{}, err
	}

	for _, rc := range doc.RateConfigs {
		parsed, err := f.parseRateConfig(rc)
		if err != nil {
			return billing.FeeType{}, fmt.Errorf("fee type %s: %w", doc.ID, err)
		}
		ft.RateConfigs = append(ft.RateConfigs, parsed)
	}

	for _, qc := range doc.QuantityRates {
		parsed, err := f.parseQuantityConfig(qc)
		if err != nil {
			return billing.FeeType{}, fmt.Errorf("fee type %s: %w", doc.ID, err)
		}
		ft.QuantityConfigs = append(ft.QuantityConfigs, parsed)
	}

	return ft, nil
}

func (f *ConfigFactory) parseRateConfig(doc RateConfigJSON) (billing.FeeRateConfig, error) {
	if doc.ID == "" {
		return billing.FeeRateConfig{}, fmt.Errorf("rate config id is required")
	}

	cfg := billing.FeeRateConfig{
		ID:       billing.RateConfigID(doc.ID),
		Name:     doc.Name,
		UnitName: doc.UnitName,
		// New configurations always start inactive; going live is the
		// explicit activate transition.
		Status: billing.ConfigInactive,
	}

	var err error
	if cfg.VATRate, err = parseRate(doc.VATRate, "vat_rate"); err != nil {
		return billing.FeeRateConfig{}, err
	}
	if cfg.BVMTFee, err = parseRate(doc.BVMTFee, "bvmt_fee"); err != nil {
		return billing.FeeRateConfig{}, err
	}
	if cfg.ApplyDate, err = parseDate(doc.ApplyDate); err != nil {
		return billing.FeeRateConfig{}, err
	}

	for _, t := range doc.Tiers {
		tier := billing.FeeTier{Order: t.Order}
		if tier.LowerBound, err = parseRate(t.Lower, "tier lower bound"); err != nil {
			return billing.FeeRateConfig{}, err
		}
		if tier.UnitRate, err = parseRate(t.Rate, "tier rate"); err != nil {
			return billing.FeeRateConfig{}, err
		}
		if t.Upper != "" {
			upper, err := parseRate(t.Upper, "tier upper bound")
			if err != nil {
				return billing.FeeRateConfig{}, err
			}
			tier.UpperBound = &upper
		}
		cfg.Tiers = append(cfg.Tiers, tier)
	}

	if err := billing.ValidateTiers(cfg.ID, cfg.Tiers); err != nil {
		return billing.FeeRateConfig{}, err
	}
	return cfg, nil
}

func (f *ConfigFactory) parseQuantityConfig(doc QuantityConfigJSON) (billing.QuantityRateConfig, error) {
	if doc.ItemType == "" {
		return billing.QuantityRateConfig{}, fmt.Errorf("quantity config item_type is required")
	}

	cfg := billing.QuantityRateConfig{
		ID:       billing.RateConfigID(doc.ID),
		ItemType: doc.ItemType,
	}

	var err error
	if cfg.UnitRate, err = parseRate(doc.UnitRate, "unit_rate"); err != nil {
		return billing.QuantityRateConfig{}, err
	}
	if cfg.VATRate, err = parseRate(doc.VATRate, "vat_rate"); err != nil {
		return billing.QuantityRateConfig{}, err
	}
	return cfg, nil
}

// =============================================================================
// PARSE HELPERS
// =============================================================================

func parseRate(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must not be negative", field, s)
	}
	return d, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
