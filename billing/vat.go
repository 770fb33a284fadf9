/*
vat.go - VAT application with a single rounding point

PURPOSE:
  Applies a configurable tax rate to a gross amount. VAT is applied ONCE
  to the summed tier subtotal per fee detail, never compounded per tier,
  so repeated tier arithmetic cannot accumulate rounding drift.

ROUNDING:
  vatCost = round(gross * rate) to the smallest currency unit, half-up.

SEE ALSO:
  - compose.go: The only caller; decides the effective rate per fee type
*/
package billing

import "github.com/shopspring/decimal"

// VATResult is the outcome of applying VAT to a gross amount.
type VATResult struct {
	VATCost decimal.Decimal
	Total   decimal.Decimal
}

// ApplyVAT computes the VAT cost and VAT-inclusive total for a gross amount.
// The gross amount itself is not re-rounded; only the VAT cost carries the
// single rounding point.
func ApplyVAT(gross, rate decimal.Decimal) VATResult {
	vat := RoundMoney(gross.Mul(rate))
	return VATResult{
		VATCost: vat,
		Total:   gross.Add(vat),
	}
}
