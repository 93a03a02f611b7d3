/*
store.go - Persistence interface for the commission ledger

PURPOSE:
  Defines the interface between the engine and the database. The engine holds
  no state across calls; visited sets and accumulators live inside a single
  traversal. Everything durable goes through this interface.

CAPABILITY GROUPS (matching what the engine actually needs):
  - Point lookups:   one promoter/admin/booking/signup row by id
  - Filtered scans:  promoters by parent id, payments by recipient
  - Upsert-with-delta: insert-or-increment monthly rollup/stats rows
  - Atomic increment: add a delta to a lifetime aggregate
  - Append:          immutable payment and historical booking rows
  - Delete:          remove a pending booking row

THE ATOMIC-DELTA CONTRACT:
  Every aggregate mutation is expressed as value = value + delta AT THE STORE,
  never as a get-then-set pair in the engine. Two concurrent approvals that
  touch the same ancestor node race only at the storage layer, where the
  increments serialize; application code never widens that window.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - hierarchy/store/memory.go: In-memory for testing

SEE ALSO:
  - propagation.go: The hot-path caller of the delta operations
  - store/sqlite/sqlite.go: Concrete implementation
*/
package hierarchy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - The ledger persistence contract
// =============================================================================

// Store is the persistence contract of the commission engine. Lookups return
// (nil, nil) for missing rows; only I/O failures surface as errors.
type Store interface {
	// ---- Admins ----

	GetAdmin(ctx context.Context, id NodeID) (*Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
	CreateAdmin(ctx context.Context, a *Admin) error // assigns a.ID

	// ---- Promoters ----

	GetPromoter(ctx context.Context, id NodeID) (*Promoter, error)
	GetPromoterByHandle(ctx context.Context, handle string) (*Promoter, error)

	// ListPromoters returns every promoter, active and soft-deleted alike.
	// Historical attribution needs deactivated nodes too.
	ListPromoters(ctx context.Context) ([]Promoter, error)

	// ListChildren returns promoters whose parent id equals parent.
	ListChildren(ctx context.Context, parent NodeID) ([]Promoter, error)

	// CountSiblings counts promoters under parent, excluding one id.
	CountSiblings(ctx context.Context, parent NodeID, excluding NodeID) (int, error)

	CreatePromoter(ctx context.Context, p *Promoter) error // assigns p.ID
	UpdatePromoter(ctx context.Context, p *Promoter) error // handle/percentage/parent/powers only

	// SoftDeletePromoter flips the active flag and stamps deletion time.
	// Booking history and aggregates are retained.
	SoftDeletePromoter(ctx context.Context, id NodeID, at time.Time) error

	// ---- Atomic aggregate deltas ----

	// AddLifetimeTotals does lifetime_spend += spend, lifetime_people += people.
	AddLifetimeTotals(ctx context.Context, id NodeID, spend decimal.Decimal, people int64) error

	// AddAccruedCommission does accrued_commission += amount.
	AddAccruedCommission(ctx context.Context, id NodeID, amount decimal.Decimal) error

	// AddLifetimePaid does lifetime_paid += amount.
	AddLifetimePaid(ctx context.Context, id NodeID, amount decimal.Decimal) error

	// AddMonthlyRollup inserts the (id, month) row with total=spend, or
	// increments total by spend if the row exists.
	AddMonthlyRollup(ctx context.Context, id NodeID, month Month, spend decimal.Decimal) error

	// AddMonthlyStats upserts the (id, year, month) row, incrementing all
	// three counters.
	AddMonthlyStats(ctx context.Context, id NodeID, year int, month time.Month, people, bookings int64, commission decimal.Decimal) error

	MonthlyRollups(ctx context.Context, id NodeID) ([]RollupRow, error) // ordered by month asc
	MonthlyStats(ctx context.Context, id NodeID) ([]StatsRow, error)    // newest first

	// ---- Bookings ----

	CreateBooking(ctx context.Context, b *Booking) error // assigns b.ID
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	ListPendingBookings(ctx context.Context) ([]Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error // pre-approval edits only
	DeleteBooking(ctx context.Context, id int64) error

	AppendHistory(ctx context.Context, h *HistoricalBooking) error // assigns h.ID
	HistoryByPromoter(ctx context.Context, id NodeID) ([]HistoricalBooking, error)

	// DirectStats aggregates a promoter's own historical bookings.
	DirectStats(ctx context.Context, id NodeID) (DirectStats, error)

	// ---- Payments (append-only) ----

	AppendPayment(ctx context.Context, p *Payment) error
	PaymentsTo(ctx context.Context, recipient NodeID) ([]Payment, error)
	SumPaymentsTo(ctx context.Context, recipient NodeID) (decimal.Decimal, error)

	// ---- Signup requests ----

	CreateSignupRequest(ctx context.Context, r *SignupRequest) error // assigns r.ID
	GetSignupRequest(ctx context.Context, id int64) (*SignupRequest, error)
	ListPendingSignupRequests(ctx context.Context) ([]SignupRequest, error)

	// ResolveSignupRequest moves a pending request to approved/rejected.
	ResolveSignupRequest(ctx context.Context, id int64, status SignupStatus, adminNote string, at time.Time) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic multi-step operations
// =============================================================================

// TxStore wraps Store with transaction support. The approval workflow runs
// its post-validation steps inside one transaction where the store supports
// it; fn returning an error rolls everything back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
