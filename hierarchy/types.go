/*
Package hierarchy provides the core commission engine.

PURPOSE:
  This package contains the domain types and algorithms for a referral
  hierarchy of table promoters: tree traversal with cycle protection,
  commission propagation up the parent chain, and the bottom-up
  attribution fold used for reporting.

KEY CONCEPTS IN THIS FILE (types.go):
  - Promoter: A commission-earning node with a weak parent reference
  - Admin: A root-level account owning one or more promoter subtrees
  - Booking / HistoricalBooking: Pending requests and their permanent records
  - Payment: An immutable commission payout record

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all monetary values
  2. Weak references: A promoter's parent is a lookup key, never a live
     pointer - the hierarchy is reconstructed by query on every traversal
  3. Soft deletion: Promoters are deactivated, never removed, so historical
     commission attribution survives
  4. Atomic deltas: All aggregate fields are mutated through the Store as
     value = value + delta, never read-modify-write

SEE ALSO:
  - walker.go: Parent/child traversal with cycle detection
  - propagation.go: Per-approval incremental aggregate updates
  - attribution.go: Subtree revenue fold for reporting
  - store.go: Persistence interface
*/
package hierarchy

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NodeID identifies a node in the hierarchy. Promoters and admins share the
// keyspace: a parent reference is resolved against promoters first, then
// admins (see Walker).
type NodeID int64

// =============================================================================
// PROMOTER - A commission-earning referral node
// =============================================================================

// Promoter is a PR account. Its parent reference, when non-nil, should point
// at another promoter or at an admin; malformed data (self-reference, cycles)
// is tolerated by traversal rather than rejected at read time.
type Promoter struct {
	ID       NodeID
	Handle   string  // unique display handle
	ParentID *NodeID // nil = top of hierarchy, owned by an admin

	// Percentage is the commission rate in [0, 100] applied to spend.
	Percentage decimal.Decimal

	// Powers marks a promoter allowed to propose new promoters for
	// admin approval.
	Powers bool

	// Lifetime aggregates. Maintained incrementally by the propagation
	// engine and the payment resolver; never recomputed from scratch.
	LifetimeSpend     decimal.Decimal
	LifetimePeople    int64
	AccruedCommission decimal.Decimal // running balance of commission earned
	LifetimePaid      decimal.Decimal // total commission paid out

	Active    bool
	DeletedAt *time.Time
	CreatedAt time.Time
}

// Admin is a root-level account. At least one admin always exists.
type Admin struct {
	ID     NodeID
	Handle string
}

// ValidPercentage reports whether pct is a usable commission rate.
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(decimal.NewFromInt(100))
}

// CommissionOn computes spend * pct / 100.
func CommissionOn(spend, pct decimal.Decimal) decimal.Decimal {
	return spend.Mul(pct).Div(decimal.NewFromInt(100))
}

// =============================================================================
// BOOKINGS
// =============================================================================

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingApproved BookingStatus = "approved"
	BookingRejected BookingStatus = "rejected"
)

// Booking is a pending table request submitted by a promoter. Approval
// converts it into a HistoricalBooking and removes it from the pending set;
// rejection removes it outright.
type Booking struct {
	ID            int64
	PromoterID    NodeID
	Date          time.Time
	PartySize     int
	TableName     string
	ExpectedSpend decimal.Decimal
	Gifts         string // freebie notes
	Notes         string
	Status        BookingStatus

	// Edit audit trail, set by pre-approval amendments.
	Edited    bool
	EditNotes string
	EditedBy  string // editor handle

	CreatedAt time.Time
}

// HistoricalBooking is the permanent record of an approved booking. Created
// only by the approval transition and never mutated afterward.
type HistoricalBooking struct {
	ID            int64
	PromoterID    NodeID
	Date          time.Time
	PartySize     int
	TableName     string
	ExpectedSpend decimal.Decimal
	Gifts         string
	Notes         string

	// Confirmation is an opaque marker assigned at approval time.
	Confirmation string

	Edited    bool
	EditNotes string
	EditedBy  string

	ApprovedAt time.Time
}

// DirectStats are a promoter's own (non-subtree) approved-booking aggregates.
type DirectStats struct {
	Revenue  decimal.Decimal
	Bookings int64
	People   int64
}

// =============================================================================
// ROLLUPS & STATS
// =============================================================================

// RollupRow is one (promoter, month) spend rollup.
type RollupRow struct {
	PromoterID NodeID
	Month      Month
	Total      decimal.Decimal
}

// StatsRow is one (promoter, year, month) performance row.
type StatsRow struct {
	PromoterID NodeID
	Year       int
	Month      time.Month
	People     int64
	Bookings   int64
	Commission decimal.Decimal
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payment is one commission payout. Append-only: once recorded it is never
// modified or deleted.
type Payment struct {
	ID          string // uuid
	RecipientID NodeID
	PayerID     *NodeID // nil = paid by the top-level admin
	Amount      decimal.Decimal
	Note        string
	PaidAt      time.Time
}

// =============================================================================
// SIGNUP REQUESTS - Promoter-proposed new promoters
// =============================================================================

type SignupStatus string

const (
	SignupPending  SignupStatus = "pending"
	SignupApproved SignupStatus = "approved"
	SignupRejected SignupStatus = "rejected"
)

// SignupRequest is a proposal, made by a promoter with powers, to create a
// new promoter under a given parent. An admin approves or rejects it.
type SignupRequest struct {
	ID               int64
	Handle           string
	Percentage       decimal.Decimal
	RequesterID      NodeID
	ProposedParentID *NodeID
	Note             string
	Status           SignupStatus
	AdminNote        string
	RequestedAt      time.Time
	RespondedAt      *time.Time
}
