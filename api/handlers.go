/*
handlers.go - HTTP API handlers for the fee calculation service

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and stores.

ENDPOINTS:
  Fee types:
    GET    /api/fee-types                          List fee types
    POST   /api/fee-types                          Create from JSON definition
    GET    /api/fee-types/{id}                     Get fee type with configs
    POST   /api/fee-types/{id}/configs             Add a rate config (inactive)
    POST   /api/fee-types/{id}/configs/{cid}/activate
                                                   Activate config, deactivate siblings

  Apartments and readings:
    GET    /api/apartments                         List apartments
    POST   /api/apartments                         Create apartment
    GET    /api/apartments/{id}                    Get apartment
    GET    /api/apartments/{id}/readings           Reading history per fee type
    POST   /api/apartments/{id}/readings           Record a meter reading
    GET    /api/apartments/{id}/notices            Notices for apartment

  Notices:
    POST   /api/notices                            Generate draft notice
    GET    /api/notices/{id}                       Get notice with details
    POST   /api/notices/{id}/recompute             Recompute draft (full replacement)
    POST   /api/notices/{id}/issue                 Freeze and open payment
    POST   /api/notices/{id}/cancel                Void notice
    POST   /api/notices/{id}/pay                   Mark issued notice paid

  Settings:
    GET    /api/settings                           Billing cycle settings
    PUT    /api/settings                           Update settings

ERROR HANDLING:
  Engine errors map to HTTP status via billing.IsClientError/IsNotFound:
  - 400: invalid input, tier table defects, reading errors, frozen notices
  - 404: missing resources
  - 409: consistency violations (duplicate issued notice)
  - 500: store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - billing/aggregate.go: The computation behind notice generation
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store bundles every billing store the handlers need. Both the in-memory
// store and the SQLite store satisfy it.
type Store interface {
	billing.ConfigStore
	billing.ApartmentStore
	billing.ReadingStore
	billing.NoticeStore
	billing.SettingsStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Factory *factory.ConfigFactory

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewConfigFactory(),
		Now:     time.Now,
	}
}

// =============================================================================
// FEE TYPE HANDLERS
// =============================================================================

// ListFeeTypes returns all fee types with nested configurations.
func (h *Handler) ListFeeTypes(w http.ResponseWriter, r *http.Request) {
	feeTypes, err := h.Store.ListFeeTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee types", err)
		return
	}

	dtos := make([]FeeTypeDTO, len(feeTypes))
	for i, ft := range feeTypes {
		dtos[i] = toFeeTypeDTO(ft)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFeeType creates a fee type from a JSON definition.
func (h *Handler) CreateFeeType(w http.ResponseWriter, r *http.Request) {
	var doc factory.FeeTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ft, err := h.Factory.FromJSON(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fee type definition", err)
		return
	}

	if existing, err := h.Store.GetFeeType(r.Context(), ft.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check fee type", err)
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Fee type already exists", nil)
		return
	}

	if err := h.Store.SaveFeeType(r.Context(), ft); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save fee type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeeTypeDTO(ft))
}

// GetFeeType returns one fee type.
func (h *Handler) GetFeeType(w http.ResponseWriter, r *http.Request) {
	ft, err := h.Store.GetFeeType(r.Context(), billing.FeeTypeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get fee type", err)
		return
	}
	if ft == nil {
		writeError(w, http.StatusNotFound, "Fee type not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toFeeTypeDTO(*ft))
}

// AddRateConfig appends a new (inactive) rate configuration to a fee type.
func (h *Handler) AddRateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := billing.FeeTypeID(chi.URLParam(r, "id"))

	ft, err := h.Store.GetFeeType(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get fee type", err)
		return
	}
	if ft == nil {
		writeError(w, http.StatusNotFound, "Fee type not found", nil)
		return
	}

	var doc factory.RateConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	wrapped := factory.FeeTypeJSON{
		ID:          string(ft.ID),
		Name:        ft.Name,
		Calculation: string(ft.Calculation),
		RateConfigs: []factory.RateConfigJSON{doc},
	}
	parsed, err := h.Factory.FromJSON(wrapped)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate config", err)
		return
	}

	ft.RateConfigs = append(ft.RateConfigs, parsed.RateConfigs[0])
	if err := h.Store.SaveFeeType(ctx, *ft); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate config", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateConfigDTO(parsed.RateConfigs[0]))
}

// ActivateRateConfig makes one config active and atomically deactivates
// its siblings, returning the complete updated set.
func (h *Handler) ActivateRateConfig(w http.ResponseWriter, r *http.Request) {
	feeTypeID := billing.FeeTypeID(chi.URLParam(r, "id"))
	configID := billing.RateConfigID(chi.URLParam(r, "configID"))

	configs, err := h.Store.ActivateRateConfig(r.Context(), feeTypeID, configID)
	if err != nil {
		writeEngineError(w, "Failed to activate rate config", err)
		return
	}

	dtos := make([]RateConfigDTO, len(configs))
	for i, c := range configs {
		dtos[i] = toRateConfigDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// APARTMENT HANDLERS
// =============================================================================

func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := h.Store.ListApartments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list apartments", err)
		return
	}

	dtos := make([]ApartmentDTO, len(apartments))
	for i, a := range apartments {
		dtos[i] = ApartmentDTO{ID: string(a.ID), Code: a.Code, Floor: a.Floor, Area: a.Area.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req CreateApartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	area, err := decimal.NewFromString(req.Area)
	if err != nil || area.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid area", err)
		return
	}

	apt := billing.Apartment{
		ID:    billing.ApartmentID(uuid.NewString()),
		Code:  req.Code,
		Floor: req.Floor,
		Area:  area,
	}
	if err := h.Store.SaveApartment(r.Context(), apt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save apartment", err)
		return
	}
	writeJSON(w, http.StatusCreated, ApartmentDTO{ID: string(apt.ID), Code: apt.Code, Floor: apt.Floor, Area: apt.Area.String()})
}

func (h *Handler) GetApartment(w http.ResponseWriter, r *http.Request) {
	apt, err := h.Store.GetApartment(r.Context(), billing.ApartmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get apartment", err)
		return
	}
	if apt == nil {
		writeError(w, http.StatusNotFound, "Apartment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ApartmentDTO{ID: string(apt.ID), Code: apt.Code, Floor: apt.Floor, Area: apt.Area.String()})
}

// =============================================================================
// READING HANDLERS
// =============================================================================

// CreateReading records an immutable meter-read event.
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	apartmentID := billing.ApartmentID(chi.URLParam(r, "id"))

	var req CreateReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	current, err := decimal.NewFromString(req.Current)
	if err != nil || current.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid reading value", err)
		return
	}
	readAt, err := time.Parse("2006-01-02", req.ReadingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reading_date format (use YYYY-MM-DD)", err)
		return
	}

	reading := billing.UtilityReading{
		ID:          billing.ReadingID(uuid.NewString()),
		ApartmentID: apartmentID,
		FeeTypeID:   billing.FeeTypeID(req.FeeTypeID),
		Current:     current,
		ReadingDate: readAt,
	}
	if err := h.Store.AppendReading(r.Context(), reading); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReadingDTO(reading))
}

// ListReadings returns the chronological reading history.
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	apartmentID := billing.ApartmentID(chi.URLParam(r, "id"))
	feeTypeID := billing.FeeTypeID(r.URL.Query().Get("fee_type_id"))
	if feeTypeID == "" {
		writeError(w, http.StatusBadRequest, "fee_type_id query parameter is required", nil)
		return
	}

	readings, err := h.Store.ListReadings(r.Context(), apartmentID, feeTypeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list readings", err)
		return
	}

	dtos := make([]ReadingDTO, len(readings))
	for i, rd := range readings {
		dtos[i] = toReadingDTO(rd)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toReadingDTO(r billing.UtilityReading) ReadingDTO {
	return ReadingDTO{
		ID:          string(r.ID),
		ApartmentID: string(r.ApartmentID),
		FeeTypeID:   string(r.FeeTypeID),
		Current:     r.Current.String(),
		ReadingDate: r.ReadingDate.Format("2006-01-02"),
	}
}

// =============================================================================
// NOTICE HANDLERS
// =============================================================================

// GenerateNotice computes a draft notice for (apartment, cycle, fee types).
// If a draft for the pair already exists it is recomputed in place - the
// detail set is fully replaced, never patched. An issued notice blocks
// regeneration.
func (h *Handler) GenerateNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cycle, err := billing.ParseCycle(req.Cycle)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid billing cycle", err)
		return
	}

	apt, err := h.Store.GetApartment(ctx, billing.ApartmentID(req.ApartmentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get apartment", err)
		return
	}
	if apt == nil {
		writeError(w, http.StatusNotFound, "Apartment not found", nil)
		return
	}

	input, err := h.loadNoticeInput(r, *apt, cycle, req)
	if err != nil {
		writeEngineError(w, "Failed to load notice input", err)
		return
	}

	existing, err := h.Store.FindNotice(ctx, apt.ID, cycle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing notice", err)
		return
	}

	now := h.Now().UTC()
	var notice billing.FeeNotice
	if existing != nil {
		notice, err = billing.Recompute(*existing, input)
		if errors.Is(err, billing.ErrNoticeFrozen) {
			msg := "Notice for this cycle is already issued"
			if existing.Status == billing.NoticeCanceled {
				msg = "Notice for this cycle is canceled"
			}
			writeError(w, http.StatusConflict, msg, err)
			return
		}
	} else {
		notice, err = billing.BuildNotice(input)
		if err == nil {
			// Identifiers belong to the persistence layer; the engine
			// never generates placeholder ids.
			notice.ID = billing.NoticeID(uuid.NewString())
			notice.CreatedAt = now
		}
	}
	if err != nil {
		writeEngineError(w, "Failed to compute notice", err)
		return
	}
	notice.UpdatedAt = now

	if err := h.Store.SaveNotice(ctx, notice); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save notice", err)
		return
	}
	NoticesGenerated.Inc()
	writeJSON(w, http.StatusCreated, toNoticeDTO(notice))
}

// GetNotice returns a notice with its full detail and tier snapshots.
func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	notice, err := h.Store.GetNotice(r.Context(), billing.NoticeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get notice", err)
		return
	}
	if notice == nil {
		writeError(w, http.StatusNotFound, "Notice not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toNoticeDTO(*notice))
}

// ListNotices returns all notices for an apartment.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Store.ListNotices(r.Context(), billing.ApartmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notices", err)
		return
	}

	dtos := make([]NoticeDTO, len(notices))
	for i, n := range notices {
		dtos[i] = toNoticeDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecomputeNotice rebuilds a draft notice from current configuration and
// readings.
func (h *Handler) RecomputeNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notice, err := h.Store.GetNotice(ctx, billing.NoticeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get notice", err)
		return
	}
	if notice == nil {
		writeError(w, http.StatusNotFound, "Notice not found", nil)
		return
	}

	apt, err := h.Store.GetApartment(ctx, notice.ApartmentID)
	if err != nil || apt == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get apartment", err)
		return
	}

	req := GenerateNoticeRequest{ApartmentID: string(notice.ApartmentID), Cycle: notice.Cycle.String()}
	for _, d := range notice.Details {
		req.FeeTypeIDs = append(req.FeeTypeIDs, string(d.FeeTypeID))
	}

	input, err := h.loadNoticeInput(r, *apt, notice.Cycle, req)
	if err != nil {
		writeEngineError(w, "Failed to load notice input", err)
		return
	}

	recomputed, err := billing.Recompute(*notice, input)
	if err != nil {
		writeEngineError(w, "Failed to recompute notice", err)
		return
	}
	recomputed.UpdatedAt = h.Now().UTC()

	if err := h.Store.SaveNotice(ctx, recomputed); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save notice", err)
		return
	}
	NoticesGenerated.Inc()
	writeJSON(w, http.StatusOK, toNoticeDTO(recomputed))
}

// IssueNotice freezes a draft and opens the payment lifecycle.
func (h *Handler) IssueNotice(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, func(n billing.FeeNotice, s billing.BillingSettings) (billing.FeeNotice, error) {
		return billing.Issue(n, h.Now().UTC(), s)
	})
}

// CancelNotice voids a notice.
func (h *Handler) CancelNotice(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, func(n billing.FeeNotice, _ billing.BillingSettings) (billing.FeeNotice, error) {
		return billing.Cancel(n)
	})
}

// PayNotice marks an issued notice paid.
func (h *Handler) PayNotice(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, func(n billing.FeeNotice, _ billing.BillingSettings) (billing.FeeNotice, error) {
		return billing.MarkPaid(n)
	})
}

func (h *Handler) transitionNotice(w http.ResponseWriter, r *http.Request, fn func(billing.FeeNotice, billing.BillingSettings) (billing.FeeNotice, error)) {
	ctx := r.Context()

	notice, err := h.Store.GetNotice(ctx, billing.NoticeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get notice", err)
		return
	}
	if notice == nil {
		writeError(w, http.StatusNotFound, "Notice not found", nil)
		return
	}

	settings, err := h.Store.GetSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}

	updated, err := fn(*notice, settings)
	if err != nil {
		writeEngineError(w, "Notice transition rejected", err)
		return
	}
	updated.UpdatedAt = h.Now().UTC()

	if err := h.Store.SaveNotice(ctx, updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save notice", err)
		return
	}
	writeJSON(w, http.StatusOK, toNoticeDTO(updated))
}

// loadNoticeInput assembles the plain-data engine input from the stores.
func (h *Handler) loadNoticeInput(r *http.Request, apt billing.Apartment, cycle billing.BillingCycle, req GenerateNoticeRequest) (billing.NoticeInput, error) {
	ctx := r.Context()

	settings, err := h.Store.GetSettings(ctx)
	if err != nil {
		return billing.NoticeInput{}, err
	}

	input := billing.NoticeInput{
		Apartment:  apt,
		Cycle:      cycle,
		Readings:   make(map[billing.FeeTypeID][]billing.UtilityReading),
		Quantities: make(map[billing.FeeTypeID][]billing.QuantityLine),
		Settings:   settings,
		IssueDate:  h.Now().UTC(),
	}

	for _, rawID := range req.FeeTypeIDs {
		id := billing.FeeTypeID(rawID)

		ft, err := h.Store.GetFeeType(ctx, id)
		if err != nil {
			return billing.NoticeInput{}, err
		}
		if ft == nil {
			return billing.NoticeInput{}, billing.ErrConfigNotFound
		}
		input.FeeTypes = append(input.FeeTypes, *ft)

		if ft.Calculation == billing.CalcTiered {
			readings, err := h.Store.ListReadings(ctx, apt.ID, id)
			if err != nil {
				return billing.NoticeInput{}, err
			}
			input.Readings[id] = readings
		}

		for _, line := range req.Quantities[rawID] {
			qty, err := decimal.NewFromString(line.Quantity)
			if err != nil || qty.IsNegative() {
				return billing.NoticeInput{}, billing.ErrInvalidReading
			}
			input.Quantities[id] = append(input.Quantities[id], billing.QuantityLine{
				ItemType: line.ItemType,
				Quantity: qty,
			})
		}
	}
	return input, nil
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsDTO{
		ClosingDayOfMonth: settings.ClosingDayOfMonth,
		PaymentDueDays:    settings.PaymentDueDays,
	})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClosingDayOfMonth < 1 || req.ClosingDayOfMonth > 28 {
		writeError(w, http.StatusBadRequest, "closing_day_of_month must be 1-28", nil)
		return
	}
	if req.PaymentDueDays < 0 {
		writeError(w, http.StatusBadRequest, "payment_due_days must not be negative", nil)
		return
	}

	settings := billing.BillingSettings{
		ClosingDayOfMonth: req.ClosingDayOfMonth,
		PaymentDueDays:    req.PaymentDueDays,
	}
	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps billing engine errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
