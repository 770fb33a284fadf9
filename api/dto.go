/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

MONEY ENCODING:
  All monetary and consumption values travel as decimal strings, never as
  JSON numbers. Clients render thousands separators and percentages; the
  API only guarantees fixed-point fidelity.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: FeeTypeJSON used for fee type creation
*/
package api

import (
	"time"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// FEE TYPES AND CONFIGS
// =============================================================================

type FeeTypeDTO struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Calculation    string              `json:"calculation"`
	VATApplicable  bool                `json:"vat_applicable"`
	DefaultRate    string              `json:"default_rate"`
	DefaultVATRate string              `json:"default_vat_rate"`
	Active         bool                `json:"active"`
	ApplyDate      string              `json:"apply_date,omitempty"`
	RateConfigs    []RateConfigDTO     `json:"rate_configs,omitempty"`
	QuantityRates  []QuantityConfigDTO `json:"quantity_rates,omitempty"`
}

type RateConfigDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VATRate   string    `json:"vat_rate"`
	BVMTFee   string    `json:"bvmt_fee"`
	UnitName  string    `json:"unit_name"`
	ApplyDate string    `json:"apply_date,omitempty"`
	Status    string    `json:"status"`
	Tiers     []TierDTO `json:"tiers"`
}

type TierDTO struct {
	Order int     `json:"order"`
	Lower string  `json:"lower"`
	Upper *string `json:"upper,omitempty"`
	Rate  string  `json:"rate"`
}

type QuantityConfigDTO struct {
	ID       string `json:"id"`
	ItemType string `json:"item_type"`
	UnitRate string `json:"unit_rate"`
	VATRate  string `json:"vat_rate"`
}

// =============================================================================
// APARTMENTS AND READINGS
// =============================================================================

type ApartmentDTO struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Floor int    `json:"floor"`
	Area  string `json:"area"`
}

type CreateApartmentRequest struct {
	Code  string `json:"code"`
	Floor int    `json:"floor"`
	Area  string `json:"area"`
}

type ReadingDTO struct {
	ID          string `json:"id"`
	ApartmentID string `json:"apartment_id"`
	FeeTypeID   string `json:"fee_type_id"`
	Current     string `json:"current"`
	ReadingDate string `json:"reading_date"`
}

type CreateReadingRequest struct {
	FeeTypeID   string `json:"fee_type_id"`
	Current     string `json:"current"`
	ReadingDate string `json:"reading_date"` // YYYY-MM-DD
}

// =============================================================================
// NOTICES
// =============================================================================

type GenerateNoticeRequest struct {
	ApartmentID string                    `json:"apartment_id"`
	Cycle       string                    `json:"cycle"` // YYYY-MM
	FeeTypeIDs  []string                  `json:"fee_type_ids"`
	Quantities  map[string][]QuantityLine `json:"quantities,omitempty"` // fee type id -> lines
}

type QuantityLine struct {
	ItemType string `json:"item_type"`
	Quantity string `json:"quantity"`
}

type NoticeDTO struct {
	ID          string      `json:"id"`
	ApartmentID string      `json:"apartment_id"`
	Cycle       string      `json:"cycle"`
	Status      string      `json:"status"`
	Payment     string      `json:"payment_status"`
	IssueDate   *string     `json:"issue_date,omitempty"`
	DueDate     *string     `json:"due_date,omitempty"`
	Total       string      `json:"total_amount"`
	Details     []DetailDTO `json:"details"`
	CreatedAt   string      `json:"created_at,omitempty"`
	UpdatedAt   string      `json:"updated_at,omitempty"`
}

type DetailDTO struct {
	FeeTypeID       string          `json:"fee_type_id"`
	FeeTypeName     string          `json:"fee_type_name"`
	Calculation     string          `json:"calculation"`
	Consumption     string          `json:"consumption"`
	PreviousReading *string         `json:"previous_reading"` // null flags a first bill
	CurrentReading  *string         `json:"current_reading,omitempty"`
	PreviousDate    *string         `json:"previous_date,omitempty"`
	CurrentDate     *string         `json:"current_date,omitempty"`
	Proration       string          `json:"proration"`
	SubTotal        string          `json:"sub_total"`
	BVMTCost        string          `json:"bvmt_cost"`
	GrossCost       string          `json:"gross_cost"`
	VATRate         string          `json:"vat_rate"`
	VATCost         string          `json:"vat_cost"`
	Total           string          `json:"total"`
	UnitName        string          `json:"unit_name,omitempty"`
	Tiers           []TierDetailDTO `json:"tiers,omitempty"`
}

type TierDetailDTO struct {
	Order         int     `json:"order"`
	Lower         string  `json:"lower"`
	Upper         *string `json:"upper,omitempty"`
	ProratedLower string  `json:"prorated_lower"`
	ProratedUpper *string `json:"prorated_upper,omitempty"`
	UnitRate      string  `json:"unit_rate"`
	Consumption   string  `json:"consumption"`
	SubTotal      string  `json:"sub_total"`
	UnitName      string  `json:"unit_name,omitempty"`
}

// =============================================================================
// SETTINGS AND ERRORS
// =============================================================================

type SettingsDTO struct {
	ClosingDayOfMonth int `json:"closing_day_of_month"`
	PaymentDueDays    int `json:"payment_due_days"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toFeeTypeDTO(ft billing.FeeType) FeeTypeDTO {
	dto := FeeTypeDTO{
		ID:             string(ft.ID),
		Name:           ft.Name,
		Calculation:    string(ft.Calculation),
		VATApplicable:  ft.VATApplicable,
		DefaultRate:    ft.DefaultRate.String(),
		DefaultVATRate: ft.DefaultVATRate.String(),
		Active:         ft.Active,
		ApplyDate:      formatDate(ft.ApplyDate),
	}
	for _, rc := range ft.RateConfigs {
		dto.RateConfigs = append(dto.RateConfigs, toRateConfigDTO(rc))
	}
	for _, qc := range ft.QuantityConfigs {
		dto.QuantityRates = append(dto.QuantityRates, QuantityConfigDTO{
			ID:       string(qc.ID),
			ItemType: qc.ItemType,
			UnitRate: qc.UnitRate.String(),
			VATRate:  qc.VATRate.String(),
		})
	}
	return dto
}

func toRateConfigDTO(rc billing.FeeRateConfig) RateConfigDTO {
	dto := RateConfigDTO{
		ID:        string(rc.ID),
		Name:      rc.Name,
		VATRate:   rc.VATRate.String(),
		BVMTFee:   rc.BVMTFee.String(),
		UnitName:  rc.UnitName,
		ApplyDate: formatDate(rc.ApplyDate),
		Status:    string(rc.Status),
	}
	for _, t := range rc.Tiers {
		td := TierDTO{Order: t.Order, Lower: t.LowerBound.String(), Rate: t.UnitRate.String()}
		if t.UpperBound != nil {
			s := t.UpperBound.String()
			td.Upper = &s
		}
		dto.Tiers = append(dto.Tiers, td)
	}
	return dto
}

func toNoticeDTO(n billing.FeeNotice) NoticeDTO {
	dto := NoticeDTO{
		ID:          string(n.ID),
		ApartmentID: string(n.ApartmentID),
		Cycle:       n.Cycle.String(),
		Status:      string(n.Status),
		Payment:     string(n.Payment),
		Total:       n.Total.String(),
		Details:     make([]DetailDTO, 0, len(n.Details)),
		CreatedAt:   formatTime(n.CreatedAt),
		UpdatedAt:   formatTime(n.UpdatedAt),
	}
	dto.IssueDate = formatDatePtr(n.IssueDate)
	dto.DueDate = formatDatePtr(n.DueDate)

	for _, d := range n.Details {
		dto.Details = append(dto.Details, toDetailDTO(d))
	}
	return dto
}

func toDetailDTO(d billing.FeeDetail) DetailDTO {
	dto := DetailDTO{
		FeeTypeID:   string(d.FeeTypeID),
		FeeTypeName: d.FeeTypeName,
		Calculation: string(d.Calculation),
		Consumption: d.Consumption.String(),
		Proration:   d.Proration.String(),
		SubTotal:    d.SubTotal.String(),
		BVMTCost:    d.BVMTCost.String(),
		GrossCost:   d.GrossCost.String(),
		VATRate:     d.VATRate.String(),
		VATCost:     d.VATCost.String(),
		Total:       d.Total.String(),
		UnitName:    d.UnitName,
	}
	if d.PreviousReading != nil {
		s := d.PreviousReading.String()
		dto.PreviousReading = &s
	}
	if d.CurrentReading != nil {
		s := d.CurrentReading.String()
		dto.CurrentReading = &s
	}
	dto.PreviousDate = formatDatePtr(d.PreviousDate)
	dto.CurrentDate = formatDatePtr(d.CurrentDate)

	for _, t := range d.Tiers {
		td := TierDetailDTO{
			Order:         t.Order,
			Lower:         t.LowerBound.String(),
			ProratedLower: t.ProratedLower.String(),
			UnitRate:      t.UnitRate.String(),
			Consumption:   t.Consumption.String(),
			SubTotal:      t.SubTotal.String(),
			UnitName:      t.UnitName,
		}
		if t.UpperBound != nil {
			s := t.UpperBound.String()
			td.Upper = &s
		}
		if t.ProratedUpper != nil {
			s := t.ProratedUpper.String()
			td.ProratedUpper = &s
		}
		dto.Tiers = append(dto.Tiers, td)
	}
	return dto
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
