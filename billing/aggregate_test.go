package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func testSettings() billing.BillingSettings {
	return billing.BillingSettings{ClosingDayOfMonth: 25, PaymentDueDays: 15}
}

func testNoticeInput() billing.NoticeInput {
	return billing.NoticeInput{
		Apartment: testApartment(),
		Cycle:     "2025-01",
		FeeTypes:  []billing.FeeType{electricityFeeType(), parkingFeeType()},
		Readings: map[billing.FeeTypeID][]billing.UtilityReading{
			"ft-elec": {
				*reading("r-1", "30", 2024, time.December, 28),
				*reading("r-2", "120", 2025, time.January, 28),
			},
		},
		Quantities: map[billing.FeeTypeID][]billing.QuantityLine{
			"ft-park": {
				{ItemType: "motorbike", Quantity: dec("2")},
			},
		},
		Settings:  testSettings(),
		IssueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// NOTICE ASSEMBLY TESTS
// =============================================================================

func TestBuildNotice_MultipleFeeTypes(t *testing.T) {
	// GIVEN: Electricity (readings 30 -> 120, VAT 10%) and parking
	//        (2 motorbikes, VAT 10%)
	// WHEN: Building the notice for 2025-01
	// THEN: Electricity 209000 + parking 220000 = 429000

	notice, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notice.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(notice.Details))
	}
	if !notice.Total.Equal(dec("429000")) {
		t.Errorf("expected total 429000, got %v", notice.Total)
	}
	if notice.Status != billing.NoticeDraft {
		t.Errorf("expected draft status, got %s", notice.Status)
	}
	if notice.Payment != billing.PaymentNotApplicable {
		t.Errorf("expected payment n/a on draft, got %s", notice.Payment)
	}
	if notice.ID != "" {
		t.Errorf("expected no ID from the engine, got %q", notice.ID)
	}

	due := time.Date(2025, time.February, 16, 0, 0, 0, 0, time.UTC)
	if notice.DueDate == nil || !notice.DueDate.Equal(due) {
		t.Errorf("expected due date %v, got %v", due, notice.DueDate)
	}
}

func TestBuildNotice_Reproducible(t *testing.T) {
	// GIVEN: The same input twice
	// WHEN: Building two notices
	// THEN: Detail content and totals are identical

	first, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.Total.Equal(second.Total) {
		t.Errorf("totals differ: %v vs %v", first.Total, second.Total)
	}
	for i := range first.Details {
		if !first.Details[i].Total.Equal(second.Details[i].Total) {
			t.Errorf("detail %d totals differ: %v vs %v",
				i, first.Details[i].Total, second.Details[i].Total)
		}
	}
}

func TestBuildNotice_ComponentFailureAbortsWhole(t *testing.T) {
	// One fee type without an active config fails the entire notice.
	in := testNoticeInput()
	in.FeeTypes[0].RateConfigs[0].Status = billing.ConfigInactive

	_, err := billing.BuildNotice(in)
	if !errors.Is(err, billing.ErrNoActiveConfiguration) {
		t.Errorf("expected ErrNoActiveConfiguration, got %v", err)
	}
}

func TestBuildNotice_PicksLatestReadingPair(t *testing.T) {
	// GIVEN: Three readings in shuffled order
	// WHEN: Building the notice
	// THEN: Consumption comes from the latest two by reading date

	in := testNoticeInput()
	in.FeeTypes = in.FeeTypes[:1]
	in.Readings["ft-elec"] = []billing.UtilityReading{
		*reading("r-2", "120", 2025, time.January, 28),
		*reading("r-0", "5", 2024, time.November, 28),
		*reading("r-1", "30", 2024, time.December, 28),
	}

	notice, err := billing.BuildNotice(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detail := notice.Details[0]
	if !detail.Consumption.Equal(dec("90")) {
		t.Errorf("expected consumption 120-30=90, got %v", detail.Consumption)
	}
	if detail.PreviousReading == nil || !detail.PreviousReading.Equal(dec("30")) {
		t.Errorf("expected previous reading 30, got %v", detail.PreviousReading)
	}
}

func TestBuildNotice_ApplyDateRestrictsCharge(t *testing.T) {
	// GIVEN: An area fee applying from January 17
	// WHEN: Building the January notice
	// THEN: The detail is prorated to 15/31 of the month

	in := billing.NoticeInput{
		Apartment: billing.Apartment{ID: "apt-1", Area: dec("62")},
		Cycle:     "2025-01",
		FeeTypes: []billing.FeeType{{
			ID:          "ft-mgmt",
			Name:        "Management fee",
			Calculation: billing.CalcArea,
			DefaultRate: dec("10000"),
			ApplyDate:   time.Date(2025, time.January, 17, 0, 0, 0, 0, time.UTC),
		}},
		Settings:  testSettings(),
		IssueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	notice, err := billing.BuildNotice(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !notice.Details[0].Proration.Equal(dec("15").Div(dec("31"))) {
		t.Errorf("expected proration 15/31, got %v", notice.Details[0].Proration)
	}
}

func TestBuildNotice_ApplyDateAfterCycle(t *testing.T) {
	// GIVEN: An area fee that only starts applying in March
	// WHEN: Building the January notice
	// THEN: The detail is kept with zero proration and zero amounts

	in := billing.NoticeInput{
		Apartment: billing.Apartment{ID: "apt-1", Area: dec("62")},
		Cycle:     "2025-01",
		FeeTypes: []billing.FeeType{{
			ID:          "ft-mgmt",
			Name:        "Management fee",
			Calculation: billing.CalcArea,
			DefaultRate: dec("10000"),
			ApplyDate:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		}},
		Settings:  testSettings(),
		IssueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	notice, err := billing.BuildNotice(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notice.Details) != 1 {
		t.Fatalf("expected the zero-amount detail to be kept, got %d details", len(notice.Details))
	}
	detail := notice.Details[0]
	if !detail.Proration.IsZero() {
		t.Errorf("expected proration 0, got %v", detail.Proration)
	}
	if !detail.Total.IsZero() {
		t.Errorf("expected zero detail total, got %v", detail.Total)
	}
	if !notice.Total.IsZero() {
		t.Errorf("expected zero notice total, got %v", notice.Total)
	}
}

func TestBuildNotice_InvalidCycle(t *testing.T) {
	in := testNoticeInput()
	in.Cycle = "not-a-cycle"

	_, err := billing.BuildNotice(in)
	if !errors.Is(err, billing.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

// =============================================================================
// RECOMPUTATION TESTS
// =============================================================================

func TestRecompute_ReplacesDetailsWholesale(t *testing.T) {
	// GIVEN: A draft notice built from two fee types
	// WHEN: Recomputing with only one fee type selected
	// THEN: The detail set is fully replaced, identity preserved

	notice, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notice.ID = "n-1"
	notice.CreatedAt = time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC)

	in := testNoticeInput()
	in.FeeTypes = in.FeeTypes[:1]

	recomputed, err := billing.Recompute(notice, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recomputed.Details) != 1 {
		t.Errorf("expected 1 detail after recompute, got %d", len(recomputed.Details))
	}
	if !recomputed.Total.Equal(dec("209000")) {
		t.Errorf("expected total 209000, got %v", recomputed.Total)
	}
	if recomputed.ID != "n-1" {
		t.Errorf("expected identity preserved, got %q", recomputed.ID)
	}
	if !recomputed.CreatedAt.Equal(notice.CreatedAt) {
		t.Errorf("expected CreatedAt preserved, got %v", recomputed.CreatedAt)
	}
}

func TestRecompute_FrozenNotice(t *testing.T) {
	notice, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issued, err := billing.Issue(notice, time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC), testSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = billing.Recompute(issued, testNoticeInput())
	if !errors.Is(err, billing.ErrNoticeFrozen) {
		t.Errorf("expected ErrNoticeFrozen, got %v", err)
	}
}

// =============================================================================
// LIFECYCLE TRANSITION TESTS
// =============================================================================

func TestNoticeLifecycle_DraftToIssuedToPaid(t *testing.T) {
	notice, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)
	issued, err := billing.Issue(notice, at, testSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issued.Status != billing.NoticeIssued {
		t.Errorf("expected issued status, got %s", issued.Status)
	}
	if issued.Payment != billing.PaymentUnpaid {
		t.Errorf("expected unpaid, got %s", issued.Payment)
	}
	if issued.IssueDate == nil || !issued.IssueDate.Equal(at) {
		t.Errorf("expected issue date %v, got %v", at, issued.IssueDate)
	}
	due := at.AddDate(0, 0, 15)
	if issued.DueDate == nil || !issued.DueDate.Equal(due) {
		t.Errorf("expected due date %v, got %v", due, issued.DueDate)
	}

	paid, err := billing.MarkPaid(issued)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Payment != billing.PaymentPaid {
		t.Errorf("expected paid, got %s", paid.Payment)
	}
}

func TestNoticeLifecycle_InvalidTransitions(t *testing.T) {
	notice, err := billing.BuildNotice(testNoticeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Paying a draft.
	if _, err := billing.MarkPaid(notice); !errors.Is(err, billing.ErrNoticeFrozen) {
		t.Errorf("expected ErrNoticeFrozen paying a draft, got %v", err)
	}

	// Issuing twice.
	at := time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)
	issued, _ := billing.Issue(notice, at, testSettings())
	if _, err := billing.Issue(issued, at, testSettings()); !errors.Is(err, billing.ErrNoticeFrozen) {
		t.Errorf("expected ErrNoticeFrozen issuing twice, got %v", err)
	}

	// Canceling a paid notice.
	paid, _ := billing.MarkPaid(issued)
	if _, err := billing.Cancel(paid); !errors.Is(err, billing.ErrNoticeFrozen) {
		t.Errorf("expected ErrNoticeFrozen canceling a paid notice, got %v", err)
	}

	// Canceling twice.
	canceled, err := billing.Cancel(issued)
	if err != nil {
		t.Fatalf("unexpected error canceling an unpaid issued notice: %v", err)
	}
	if _, err := billing.Cancel(canceled); !errors.Is(err, billing.ErrNoticeFrozen) {
		t.Errorf("expected ErrNoticeFrozen canceling twice, got %v", err)
	}
}
