package factory_test

import (
	"errors"
	"testing"

	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/factory"
)

func TestParseFeeType_TieredWithVersionedConfigs(t *testing.T) {
	// GIVEN: A complete tiered fee type document
	// WHEN: Parsing
	// THEN: Tiers are decimal-typed, the final tier open-ended, and the
	//       new config lands inactive

	raw := []byte(`{
		"id": "fee-electricity",
		"name": "Electricity",
		"calculation": "tiered",
		"vat_applicable": true,
		"rate_configs": [
			{
				"id": "cfg-2026",
				"name": "2026 tariff",
				"vat_rate": "0.10",
				"unit_name": "kWh",
				"apply_date": "2026-01-01",
				"tiers": [
					{"order": 1, "lower": "0", "upper": "50", "rate": "1678"},
					{"order": 2, "lower": "50", "rate": "1734"}
				]
			}
		]
	}`)

	f := factory.NewConfigFactory()
	ft, err := f.ParseFeeType(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ft.Calculation != billing.CalcTiered {
		t.Errorf("expected tiered calculation, got %s", ft.Calculation)
	}
	if len(ft.RateConfigs) != 1 {
		t.Fatalf("expected 1 rate config, got %d", len(ft.RateConfigs))
	}

	cfg := ft.RateConfigs[0]
	if cfg.Status != billing.ConfigInactive {
		t.Errorf("expected new config inactive, got %s", cfg.Status)
	}
	if !cfg.VATRate.Equal(billing.MustParseDecimal("0.10")) {
		t.Errorf("expected VAT rate 0.10, got %v", cfg.VATRate)
	}
	if len(cfg.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(cfg.Tiers))
	}
	if cfg.Tiers[0].UpperBound == nil || !cfg.Tiers[0].UpperBound.Equal(billing.MustParseDecimal("50")) {
		t.Errorf("expected tier 1 upper 50, got %v", cfg.Tiers[0].UpperBound)
	}
	if cfg.Tiers[1].UpperBound != nil {
		t.Error("expected final tier open-ended")
	}
}

func TestParseFeeType_QuantityRates(t *testing.T) {
	raw := []byte(`{
		"id": "fee-parking",
		"name": "Parking",
		"calculation": "quantity",
		"vat_applicable": true,
		"quantity_rates": [
			{"id": "q-moto", "item_type": "motorbike", "unit_rate": "100000", "vat_rate": "0.10"},
			{"id": "q-car", "item_type": "car", "unit_rate": "1200000", "vat_rate": "0.10"}
		]
	}`)

	ft, err := factory.NewConfigFactory().ParseFeeType(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ft.QuantityConfigs) != 2 {
		t.Fatalf("expected 2 quantity configs, got %d", len(ft.QuantityConfigs))
	}
	if ft.QuantityConfigs[0].ItemType != "motorbike" {
		t.Errorf("expected motorbike first, got %s", ft.QuantityConfigs[0].ItemType)
	}
}

func TestParseFeeType_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing id", `{"name": "X", "calculation": "area"}`},
		{"missing name", `{"id": "x", "calculation": "area"}`},
		{"unknown calculation", `{"id": "x", "name": "X", "calculation": "psychic"}`},
		{"negative rate", `{"id": "x", "name": "X", "calculation": "area", "default_rate": "-5"}`},
		{"malformed rate", `{"id": "x", "name": "X", "calculation": "area", "default_rate": "ten"}`},
		{"malformed date", `{"id": "x", "name": "X", "calculation": "area", "apply_date": "Jan 1"}`},
		{"not json", `{{{`},
	}

	f := factory.NewConfigFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ParseFeeType([]byte(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseFeeType_RejectsInvalidTierTable(t *testing.T) {
	// A gap between tiers is caught at parse time, not at billing time.
	raw := []byte(`{
		"id": "fee-x",
		"name": "X",
		"calculation": "tiered",
		"rate_configs": [
			{
				"id": "cfg-1",
				"name": "bad",
				"tiers": [
					{"order": 1, "lower": "0", "upper": "50", "rate": "1000"},
					{"order": 2, "lower": "60", "rate": "2000"}
				]
			}
		]
	}`)

	_, err := factory.NewConfigFactory().ParseFeeType(raw)
	if !errors.Is(err, billing.ErrInvalidTierTable) {
		t.Errorf("expected ErrInvalidTierTable, got %v", err)
	}
}

func TestParseFeeType_EmptyRatesDefaultToZero(t *testing.T) {
	ft, err := factory.NewConfigFactory().ParseFeeType([]byte(
		`{"id": "fee-x", "name": "X", "calculation": "area"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ft.DefaultRate.IsZero() || !ft.DefaultVATRate.IsZero() {
		t.Errorf("expected zero defaults, got %v / %v", ft.DefaultRate, ft.DefaultVATRate)
	}
}
