// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// adminIDBase keeps admin ids out of the promoter id range. Admins and
// promoters share the NodeID keyspace; parent references resolve promoters
// first, so the ranges must never overlap.
const adminIDBase = 1_000_000

type Memory struct {
	mu sync.RWMutex

	// txMu serializes WithTx blocks. Snapshot rollback cannot tolerate
	// interleaved transactions.
	txMu sync.Mutex

	admins    map[hierarchy.NodeID]hierarchy.Admin
	promoters map[hierarchy.NodeID]hierarchy.Promoter
	bookings  map[int64]hierarchy.Booking
	history   []hierarchy.HistoricalBooking
	rollups   map[rollupKey]decimal.Decimal
	stats     map[statsKey]statsVal
	payments  []hierarchy.Payment
	signups   map[int64]hierarchy.SignupRequest

	nextAdminID    hierarchy.NodeID
	nextPromoterID hierarchy.NodeID
	nextBookingID  int64
	nextHistoryID  int64
	nextSignupID   int64
}

type rollupKey struct {
	ID    hierarchy.NodeID
	Month hierarchy.Month
}

type statsKey struct {
	ID    hierarchy.NodeID
	Year  int
	Month time.Month
}

type statsVal struct {
	People     int64
	Bookings   int64
	Commission decimal.Decimal
}

func NewMemory() *Memory {
	return &Memory{
		admins:         make(map[hierarchy.NodeID]hierarchy.Admin),
		promoters:      make(map[hierarchy.NodeID]hierarchy.Promoter),
		bookings:       make(map[int64]hierarchy.Booking),
		rollups:        make(map[rollupKey]decimal.Decimal),
		stats:          make(map[statsKey]statsVal),
		signups:        make(map[int64]hierarchy.SignupRequest),
		nextAdminID:    adminIDBase + 1,
		nextPromoterID: 1,
		nextBookingID:  1,
		nextHistoryID:  1,
		nextSignupID:   1,
	}
}

// ---- Admins ----

func (m *Memory) GetAdmin(_ context.Context, id hierarchy.NodeID) (*hierarchy.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, nil
	}
	out := a
	return &out, nil
}

func (m *Memory) ListAdmins(_ context.Context) ([]hierarchy.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]hierarchy.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateAdmin(_ context.Context, a *hierarchy.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextAdminID
	m.nextAdminID++
	m.admins[a.ID] = *a
	return nil
}

// ---- Promoters ----

func (m *Memory) GetPromoter(_ context.Context, id hierarchy.NodeID) (*hierarchy.Promoter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.promoters[id]
	if !ok {
		return nil, nil
	}
	out := clonePromoter(p)
	return &out, nil
}

func (m *Memory) GetPromoterByHandle(_ context.Context, handle string) (*hierarchy.Promoter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.promoters {
		if strings.EqualFold(p.Handle, handle) {
			out := clonePromoter(p)
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListPromoters(_ context.Context) ([]hierarchy.Promoter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]hierarchy.Promoter, 0, len(m.promoters))
	for _, p := range m.promoters {
		out = append(out, clonePromoter(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListChildren(_ context.Context, parent hierarchy.NodeID) ([]hierarchy.Promoter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.Promoter
	for _, p := range m.promoters {
		if p.ParentID != nil && *p.ParentID == parent && p.ID != parent {
			out = append(out, clonePromoter(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CountSiblings(_ context.Context, parent hierarchy.NodeID, excluding hierarchy.NodeID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.promoters {
		if p.ParentID != nil && *p.ParentID == parent && p.ID != excluding && p.ID != parent {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreatePromoter(_ context.Context, p *hierarchy.Promoter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextPromoterID
	m.nextPromoterID++
	m.promoters[p.ID] = clonePromoter(*p)
	return nil
}

func (m *Memory) UpdatePromoter(_ context.Context, p *hierarchy.Promoter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.promoters[p.ID]
	if !ok {
		return hierarchy.ErrPromoterNotFound
	}
	cur.Handle = p.Handle
	cur.Percentage = p.Percentage
	cur.ParentID = cloneID(p.ParentID)
	cur.Powers = p.Powers
	m.promoters[p.ID] = cur
	return nil
}

func (m *Memory) SoftDeletePromoter(_ context.Context, id hierarchy.NodeID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.promoters[id]
	if !ok {
		return hierarchy.ErrPromoterNotFound
	}
	cur.Active = false
	t := at
	cur.DeletedAt = &t
	m.promoters[id] = cur
	return nil
}

// ---- Atomic aggregate deltas ----

func (m *Memory) AddLifetimeTotals(_ context.Context, id hierarchy.NodeID, spend decimal.Decimal, people int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.promoters[id]
	if !ok {
		return hierarchy.ErrPromoterNotFound
	}
	cur.LifetimeSpend = cur.LifetimeSpend.Add(spend)
	cur.LifetimePeople += people
	m.promoters[id] = cur
	return nil
}

func (m *Memory) AddAccruedCommission(_ context.Context, id hierarchy.NodeID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.promoters[id]
	if !ok {
		return hierarchy.ErrPromoterNotFound
	}
	cur.AccruedCommission = cur.AccruedCommission.Add(amount)
	m.promoters[id] = cur
	return nil
}

func (m *Memory) AddLifetimePaid(_ context.Context, id hierarchy.NodeID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.promoters[id]
	if !ok {
		return hierarchy.ErrPromoterNotFound
	}
	cur.LifetimePaid = cur.LifetimePaid.Add(amount)
	m.promoters[id] = cur
	return nil
}

func (m *Memory) AddMonthlyRollup(_ context.Context, id hierarchy.NodeID, month hierarchy.Month, spend decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rollupKey{ID: id, Month: month}
	m.rollups[k] = m.rollups[k].Add(spend)
	return nil
}

func (m *Memory) AddMonthlyStats(_ context.Context, id hierarchy.NodeID, year int, month time.Month, people, bookings int64, commission decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := statsKey{ID: id, Year: year, Month: month}
	cur := m.stats[k]
	cur.People += people
	cur.Bookings += bookings
	cur.Commission = cur.Commission.Add(commission)
	m.stats[k] = cur
	return nil
}

func (m *Memory) MonthlyRollups(_ context.Context, id hierarchy.NodeID) ([]hierarchy.RollupRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.RollupRow
	for k, total := range m.rollups {
		if k.ID == id {
			out = append(out, hierarchy.RollupRow{PromoterID: id, Month: k.Month, Total: total})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (m *Memory) MonthlyStats(_ context.Context, id hierarchy.NodeID) ([]hierarchy.StatsRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.StatsRow
	for k, v := range m.stats {
		if k.ID == id {
			out = append(out, hierarchy.StatsRow{
				PromoterID: id,
				Year:       k.Year,
				Month:      k.Month,
				People:     v.People,
				Bookings:   v.Bookings,
				Commission: v.Commission,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// ---- Bookings ----

func (m *Memory) CreateBooking(_ context.Context, b *hierarchy.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextBookingID
	m.nextBookingID++
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id int64) (*hierarchy.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	out := b
	return &out, nil
}

func (m *Memory) ListPendingBookings(_ context.Context) ([]hierarchy.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.Booking
	for _, b := range m.bookings {
		if b.Status == hierarchy.BookingPending {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateBooking(_ context.Context, b *hierarchy.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return hierarchy.ErrBookingNotFound
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) DeleteBooking(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return hierarchy.ErrBookingNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *Memory) AppendHistory(_ context.Context, h *hierarchy.HistoricalBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextHistoryID
	m.nextHistoryID++
	m.history = append(m.history, *h)
	return nil
}

func (m *Memory) HistoryByPromoter(_ context.Context, id hierarchy.NodeID) ([]hierarchy.HistoricalBooking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.HistoricalBooking
	for _, h := range m.history {
		if h.PromoterID == id {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovedAt.After(out[j].ApprovedAt) })
	return out, nil
}

func (m *Memory) DirectStats(_ context.Context, id hierarchy.NodeID) (hierarchy.DirectStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats hierarchy.DirectStats
	for _, h := range m.history {
		if h.PromoterID != id {
			continue
		}
		stats.Revenue = stats.Revenue.Add(h.ExpectedSpend)
		stats.Bookings++
		stats.People += int64(h.PartySize)
	}
	return stats, nil
}

// ---- Payments ----

func (m *Memory) AppendPayment(_ context.Context, p *hierarchy.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.PayerID = cloneID(p.PayerID)
	m.payments = append(m.payments, cp)
	return nil
}

func (m *Memory) PaymentsTo(_ context.Context, recipient hierarchy.NodeID) ([]hierarchy.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.Payment
	for _, p := range m.payments {
		if p.RecipientID == recipient {
			cp := p
			cp.PayerID = cloneID(p.PayerID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

func (m *Memory) SumPaymentsTo(_ context.Context, recipient hierarchy.NodeID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.RecipientID == recipient {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

// ---- Signup requests ----

func (m *Memory) CreateSignupRequest(_ context.Context, r *hierarchy.SignupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextSignupID
	m.nextSignupID++
	cp := *r
	cp.ProposedParentID = cloneID(r.ProposedParentID)
	m.signups[r.ID] = cp
	return nil
}

func (m *Memory) GetSignupRequest(_ context.Context, id int64) (*hierarchy.SignupRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.signups[id]
	if !ok {
		return nil, nil
	}
	out := r
	out.ProposedParentID = cloneID(r.ProposedParentID)
	return &out, nil
}

func (m *Memory) ListPendingSignupRequests(_ context.Context) ([]hierarchy.SignupRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []hierarchy.SignupRequest
	for _, r := range m.signups {
		if r.Status == hierarchy.SignupPending {
			cp := r
			cp.ProposedParentID = cloneID(r.ProposedParentID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ResolveSignupRequest(_ context.Context, id int64, status hierarchy.SignupStatus, adminNote string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.signups[id]
	if !ok {
		return hierarchy.ErrSignupNotFound
	}
	r.Status = status
	r.AdminNote = adminNote
	t := at
	r.RespondedAt = &t
	m.signups[id] = r
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot/rollback simulation
// =============================================================================

// WithTx executes fn against the store, rolling back to a snapshot if fn
// returns an error. Transactions are serialized; individual operations inside
// fn still take the data lock, so fn must not hold it.
func (m *Memory) WithTx(_ context.Context, fn func(hierarchy.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	admins    map[hierarchy.NodeID]hierarchy.Admin
	promoters map[hierarchy.NodeID]hierarchy.Promoter
	bookings  map[int64]hierarchy.Booking
	history   []hierarchy.HistoricalBooking
	rollups   map[rollupKey]decimal.Decimal
	stats     map[statsKey]statsVal
	payments  []hierarchy.Payment
	signups   map[int64]hierarchy.SignupRequest

	nextAdminID    hierarchy.NodeID
	nextPromoterID hierarchy.NodeID
	nextBookingID  int64
	nextHistoryID  int64
	nextSignupID   int64
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := memorySnapshot{
		admins:         make(map[hierarchy.NodeID]hierarchy.Admin, len(m.admins)),
		promoters:      make(map[hierarchy.NodeID]hierarchy.Promoter, len(m.promoters)),
		bookings:       make(map[int64]hierarchy.Booking, len(m.bookings)),
		history:        append([]hierarchy.HistoricalBooking{}, m.history...),
		rollups:        make(map[rollupKey]decimal.Decimal, len(m.rollups)),
		stats:          make(map[statsKey]statsVal, len(m.stats)),
		payments:       append([]hierarchy.Payment{}, m.payments...),
		signups:        make(map[int64]hierarchy.SignupRequest, len(m.signups)),
		nextAdminID:    m.nextAdminID,
		nextPromoterID: m.nextPromoterID,
		nextBookingID:  m.nextBookingID,
		nextHistoryID:  m.nextHistoryID,
		nextSignupID:   m.nextSignupID,
	}
	for k, v := range m.admins {
		snap.admins[k] = v
	}
	for k, v := range m.promoters {
		snap.promoters[k] = clonePromoter(v)
	}
	for k, v := range m.bookings {
		snap.bookings[k] = v
	}
	for k, v := range m.rollups {
		snap.rollups[k] = v
	}
	for k, v := range m.stats {
		snap.stats[k] = v
	}
	for k, v := range m.signups {
		snap.signups[k] = v
	}
	return snap
}

func (m *Memory) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.admins = s.admins
	m.promoters = s.promoters
	m.bookings = s.bookings
	m.history = s.history
	m.rollups = s.rollups
	m.stats = s.stats
	m.payments = s.payments
	m.signups = s.signups
	m.nextAdminID = s.nextAdminID
	m.nextPromoterID = s.nextPromoterID
	m.nextBookingID = s.nextBookingID
	m.nextHistoryID = s.nextHistoryID
	m.nextSignupID = s.nextSignupID
}

// ---- Helpers ----

func clonePromoter(p hierarchy.Promoter) hierarchy.Promoter {
	out := p
	out.ParentID = cloneID(p.ParentID)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func cloneID(id *hierarchy.NodeID) *hierarchy.NodeID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
