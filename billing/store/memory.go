// Package store provides in-memory implementations of the billing store
// interfaces, used by tests and development servers.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	feeTypes   map[billing.FeeTypeID]billing.FeeType
	apartments map[billing.ApartmentID]billing.Apartment
	readings   map[readingKey][]billing.UtilityReading
	notices    map[billing.NoticeID]billing.FeeNotice
	settings   billing.BillingSettings
}

type readingKey struct {
	ApartmentID billing.ApartmentID
	FeeTypeID   billing.FeeTypeID
}

func NewMemory() *Memory {
	return &Memory{
		feeTypes:   make(map[billing.FeeTypeID]billing.FeeType),
		apartments: make(map[billing.ApartmentID]billing.Apartment),
		readings:   make(map[readingKey][]billing.UtilityReading),
		notices:    make(map[billing.NoticeID]billing.FeeNotice),
		settings:   billing.BillingSettings{ClosingDayOfMonth: 25, PaymentDueDays: 15},
	}
}

// =============================================================================
// CONFIG STORE
// =============================================================================

func (m *Memory) ListFeeTypes(_ context.Context) ([]billing.FeeType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.FeeType, 0, len(m.feeTypes))
	for _, ft := range m.feeTypes {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetFeeType(_ context.Context, id billing.FeeTypeID) (*billing.FeeType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ft, ok := m.feeTypes[id]
	if !ok {
		return nil, nil
	}
	return &ft, nil
}

func (m *Memory) SaveFeeType(_ context.Context, ft billing.FeeType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeTypes[ft.ID] = ft
	return nil
}

// ActivateRateConfig flips the active config under one lock so no reader
// observes a transient zero-or-two-active state.
func (m *Memory) ActivateRateConfig(_ context.Context, feeTypeID billing.FeeTypeID, configID billing.RateConfigID) ([]billing.FeeRateConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ft, ok := m.feeTypes[feeTypeID]
	if !ok {
		return nil, billing.ErrConfigNotFound
	}

	updated, err := billing.Activate(ft.RateConfigs, configID)
	if err != nil {
		return nil, err
	}

	ft.RateConfigs = updated
	m.feeTypes[feeTypeID] = ft

	out := make([]billing.FeeRateConfig, len(updated))
	copy(out, updated)
	return out, nil
}

// =============================================================================
// APARTMENT STORE
// =============================================================================

func (m *Memory) ListApartments(_ context.Context) ([]billing.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Apartment, 0, len(m.apartments))
	for _, a := range m.apartments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetApartment(_ context.Context, id billing.ApartmentID) (*billing.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.apartments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) SaveApartment(_ context.Context, a billing.Apartment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apartments[a.ID] = a
	return nil
}

// =============================================================================
// READING STORE
// =============================================================================

func (m *Memory) AppendReading(_ context.Context, r billing.UtilityReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := readingKey{ApartmentID: r.ApartmentID, FeeTypeID: r.FeeTypeID}
	rs := m.readings[k]

	// Insert keeping chronological order.
	i := sort.Search(len(rs), func(i int) bool {
		return rs[i].ReadingDate.After(r.ReadingDate)
	})
	rs = append(rs, billing.UtilityReading{})
	copy(rs[i+1:], rs[i:])
	rs[i] = r
	m.readings[k] = rs
	return nil
}

func (m *Memory) ListReadings(_ context.Context, apartmentID billing.ApartmentID, feeTypeID billing.FeeTypeID) ([]billing.UtilityReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := readingKey{ApartmentID: apartmentID, FeeTypeID: feeTypeID}
	out := make([]billing.UtilityReading, len(m.readings[k]))
	copy(out, m.readings[k])
	return out, nil
}

// =============================================================================
// NOTICE STORE
// =============================================================================

func (m *Memory) SaveNotice(_ context.Context, n billing.FeeNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[n.ID] = n
	return nil
}

func (m *Memory) GetNotice(_ context.Context, id billing.NoticeID) (*billing.FeeNotice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notices[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (m *Memory) ListNotices(_ context.Context, apartmentID billing.ApartmentID) ([]billing.FeeNotice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.FeeNotice
	for _, n := range m.notices {
		if n.ApartmentID == apartmentID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cycle < out[j].Cycle })
	return out, nil
}

func (m *Memory) FindNotice(_ context.Context, apartmentID billing.ApartmentID, cycle billing.BillingCycle) (*billing.FeeNotice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, n := range m.notices {
		if n.ApartmentID == apartmentID && n.Cycle == cycle {
			found := n
			return &found, nil
		}
	}
	return nil, nil
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (m *Memory) GetSettings(_ context.Context) (billing.BillingSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s billing.BillingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}
