/*
aggregate.go - Fee notice assembly

PURPOSE:
  Combines all selected fee types for one apartment and billing cycle into
  a complete fee notice. For each fee type: resolve the calculation type,
  pick the latest reading pair, build one fee detail, concatenate.

REPRODUCIBILITY:
  BuildNotice is a pure function of its input: identical inputs produce
  identical detail and total content. The issue timestamp is supplied by
  the caller, not read from a clock, so recomputation is auditable.

RECOMPUTATION:
  A draft notice is recomputed by FULL replacement of its detail set -
  individual entries are never patched, which would leave stale tier
  snapshots behind. Issued and canceled notices are frozen.

SEE ALSO:
  - compose.go: Per-fee-type line items
  - store.go: Collaborator interfaces the caller loads inputs from
*/
package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NOTICE INPUT
// =============================================================================

// NoticeInput is the full plain-data input for one notice computation.
// The caller (typically the API layer) loads it from the configuration
// store and metering source; the engine never reads storage itself.
type NoticeInput struct {
	Apartment Apartment
	Cycle     BillingCycle

	// FeeTypes is the selected set, each with nested rate configs.
	FeeTypes []FeeType

	// Readings per fee type, any order; the engine sorts by reading date
	// and consumes the latest current/previous pair.
	Readings map[FeeTypeID][]UtilityReading

	// Quantities per quantity-calculated fee type.
	Quantities map[FeeTypeID][]QuantityLine

	Settings BillingSettings

	// IssueDate anchors the due date: dueDate = IssueDate + PaymentDueDays.
	IssueDate time.Time
}

// =============================================================================
// AGGREGATION
// =============================================================================

// BuildNotice computes a complete draft fee notice. The notice carries no
// ID: identifiers belong to the persistence layer, and the engine never
// generates placeholder ids. Any component failure aborts the whole
// computation; no partial notice is returned.
func BuildNotice(in NoticeInput) (FeeNotice, error) {
	period := in.Cycle.Period()
	if !period.Valid() {
		return FeeNotice{}, ErrInvalidPeriod
	}

	details := make([]FeeDetail, 0, len(in.FeeTypes))
	total := decimal.Zero

	for _, ft := range in.FeeTypes {
		previous, current := latestPair(in.Readings[ft.ID])

		detail, err := ComposeFeeDetail(ComposeInput{
			FeeType:    ft,
			Apartment:  in.Apartment,
			Period:     period,
			Effective:  effectiveRange(period, ft.ApplyDate),
			Previous:   previous,
			Current:    current,
			Quantities: in.Quantities[ft.ID],
		})
		if err != nil {
			return FeeNotice{}, err
		}

		details = append(details, detail)
		total = total.Add(detail.GrossCost).Add(detail.VATCost)
	}

	due := in.IssueDate.AddDate(0, 0, in.Settings.PaymentDueDays)

	return FeeNotice{
		ApartmentID: in.Apartment.ID,
		Cycle:       in.Cycle,
		Status:      NoticeDraft,
		Payment:     PaymentNotApplicable,
		DueDate:     &due,
		Total:       total,
		Details:     details,
	}, nil
}

// Recompute rebuilds a draft notice from fresh input, fully replacing its
// detail set. Identity and audit timestamps are preserved; a non-draft
// notice is frozen and returns ErrNoticeFrozen.
func Recompute(notice FeeNotice, in NoticeInput) (FeeNotice, error) {
	if notice.Status != NoticeDraft {
		return FeeNotice{}, ErrNoticeFrozen
	}

	fresh, err := BuildNotice(in)
	if err != nil {
		return FeeNotice{}, err
	}

	notice.Details = fresh.Details
	notice.Total = fresh.Total
	notice.DueDate = fresh.DueDate
	return notice, nil
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// Issue freezes a draft notice: it stamps the issue date, computes the due
// date from the billing settings, and opens the payment lifecycle.
func Issue(notice FeeNotice, at time.Time, settings BillingSettings) (FeeNotice, error) {
	if notice.Status != NoticeDraft {
		return FeeNotice{}, ErrNoticeFrozen
	}
	due := at.AddDate(0, 0, settings.PaymentDueDays)
	notice.Status = NoticeIssued
	notice.Payment = PaymentUnpaid
	notice.IssueDate = &at
	notice.DueDate = &due
	return notice, nil
}

// Cancel voids a notice. An issued-and-paid notice stays frozen.
func Cancel(notice FeeNotice) (FeeNotice, error) {
	if notice.Status == NoticeCanceled || notice.Payment == PaymentPaid {
		return FeeNotice{}, ErrNoticeFrozen
	}
	notice.Status = NoticeCanceled
	return notice, nil
}

// MarkPaid records payment on an issued notice.
func MarkPaid(notice FeeNotice) (FeeNotice, error) {
	if notice.Status != NoticeIssued || notice.Payment != PaymentUnpaid {
		return FeeNotice{}, ErrNoticeFrozen
	}
	notice.Payment = PaymentPaid
	return notice, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// latestPair returns the previous and current reading from a history,
// sorted chronologically. One reading means a first bill (nil previous).
func latestPair(readings []UtilityReading) (previous, current *UtilityReading) {
	if len(readings) == 0 {
		return nil, nil
	}
	sorted := make([]UtilityReading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ReadingDate.Before(sorted[j].ReadingDate)
	})

	current = &sorted[len(sorted)-1]
	if len(sorted) > 1 {
		previous = &sorted[len(sorted)-2]
	}
	return previous, current
}

// effectiveRange restricts a charge to the part of the period on or after
// the fee type's apply date. Nil means the full period applies. An apply
// date past the cycle end yields a range with no overlap, which prorates
// to zero while keeping the detail in the notice.
func effectiveRange(period Period, applyDate time.Time) *Period {
	if applyDate.IsZero() || !applyDate.After(period.Start) {
		return nil
	}
	if applyDate.After(period.End) {
		return &Period{Start: applyDate, End: applyDate}
	}
	return &Period{Start: applyDate, End: period.End}
}
