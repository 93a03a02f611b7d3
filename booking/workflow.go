/*
Package booking implements the table-request lifecycle.

PURPOSE:
  A promoter submits a table request; an admin approves or rejects it.
  Approval is the single money-moving transition of the system: it turns
  the pending request into a permanent history record, updates the
  submitting promoter's monthly stats, and propagates aggregates up the
  parent chain. Rejection discards the request without side effects.

APPROVAL ORDERING:
  The pending row is deleted LAST. Every earlier step is retryable because
  the pending request still exists; once the delete lands, the approval is
  complete and can never be replayed, which is what keeps the non-idempotent
  propagation at-most-once.

TIME BOUND:
  The whole approval sequence runs under a deadline (DefaultTimeout unless
  configured). On stores with transaction support the post-validation steps
  run in one transaction, so a deadline mid-sequence rolls back cleanly.

SEE ALSO:
  - hierarchy/propagation.go: The per-approval aggregate updates
  - payments: Pays out the balances this package accrues
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// DefaultTimeout bounds one approval sequence.
const DefaultTimeout = 30 * time.Second

// Workflow drives the booking lifecycle against a transactional store.
type Workflow struct {
	Store   hierarchy.TxStore
	Timeout time.Duration      // zero means DefaultTimeout
	Log     logrus.FieldLogger // optional
	Now     func() time.Time   // optional, for tests
}

func NewWorkflow(store hierarchy.TxStore) *Workflow {
	return &Workflow{Store: store}
}

func (w *Workflow) log() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return logrus.StandardLogger()
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput is a promoter's table request.
type SubmitInput struct {
	PromoterID    hierarchy.NodeID
	Date          time.Time
	PartySize     int
	TableName     string
	ExpectedSpend decimal.Decimal
	Gifts         string
	Notes         string
}

// Submit records a new pending booking for an active promoter.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (*hierarchy.Booking, error) {
	p, err := w.Store.GetPromoter(ctx, in.PromoterID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, hierarchy.ErrPromoterNotFound
	}
	if in.PartySize <= 0 {
		return nil, fmt.Errorf("party size %d: %w", in.PartySize, hierarchy.ErrInvalidAmount)
	}
	if !in.ExpectedSpend.IsPositive() {
		return nil, fmt.Errorf("expected spend %s: %w", in.ExpectedSpend, hierarchy.ErrInvalidAmount)
	}

	b := &hierarchy.Booking{
		PromoterID:    in.PromoterID,
		Date:          in.Date,
		PartySize:     in.PartySize,
		TableName:     in.TableName,
		ExpectedSpend: in.ExpectedSpend,
		Gifts:         in.Gifts,
		Notes:         in.Notes,
		Status:        hierarchy.BookingPending,
		CreatedAt:     w.now(),
	}
	if err := w.Store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	w.log().WithFields(logrus.Fields{
		"booking":  b.ID,
		"promoter": b.PromoterID,
		"spend":    b.ExpectedSpend,
	}).Info("booking submitted")
	return b, nil
}

// =============================================================================
// EDIT
// =============================================================================

// EditInput amends a still-pending booking. Zero-value fields keep the
// current values; the audit trail records who edited and why.
type EditInput struct {
	BookingID     int64
	Date          time.Time
	PartySize     int
	TableName     string
	ExpectedSpend decimal.Decimal
	Gifts         string
	Notes         string
	EditNotes     string
	EditedBy      string
}

// Edit amends a pending booking in place. Approved and rejected bookings
// are immutable.
func (w *Workflow) Edit(ctx context.Context, in EditInput) (*hierarchy.Booking, error) {
	b, err := w.Store.GetBooking(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, hierarchy.ErrBookingNotFound
	}
	if b.Status != hierarchy.BookingPending {
		return nil, hierarchy.ErrBookingNotPending
	}

	if !in.Date.IsZero() {
		b.Date = in.Date
	}
	if in.PartySize > 0 {
		b.PartySize = in.PartySize
	}
	if in.TableName != "" {
		b.TableName = in.TableName
	}
	if in.ExpectedSpend.IsPositive() {
		b.ExpectedSpend = in.ExpectedSpend
	}
	if in.Gifts != "" {
		b.Gifts = in.Gifts
	}
	if in.Notes != "" {
		b.Notes = in.Notes
	}
	b.Edited = true
	b.EditNotes = in.EditNotes
	b.EditedBy = in.EditedBy

	if err := w.Store.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// Approve runs the full approval sequence for a pending booking on behalf
// of adminID:
//
//  1. Re-check the booking is still pending
//  2. Check the acting admin owns the booking promoter's subtree
//  3. Append the permanent history record
//  4. Update the owner's monthly stats
//  5. Propagate aggregates up the parent chain
//  6. Delete the pending request (the commit point)
//
// Steps 3-6 run inside one store transaction. The sequence is bounded by
// the configured timeout; hitting it surfaces as ErrApprovalTimeout.
func (w *Workflow) Approve(ctx context.Context, bookingID int64, adminID hierarchy.NodeID) (*hierarchy.HistoricalBooking, error) {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := w.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, wrapDeadline(err)
	}
	if b == nil {
		return nil, hierarchy.ErrBookingNotFound
	}
	if b.Status != hierarchy.BookingPending {
		return nil, hierarchy.ErrBookingNotPending
	}

	walker := hierarchy.NewWalker(w.Store)
	walker.Log = w.log()
	ok, err := walker.InScope(ctx, adminID, b.PromoterID)
	if err != nil {
		return nil, wrapDeadline(err)
	}
	if !ok {
		return nil, hierarchy.ErrNotAuthorized
	}

	owner, err := w.Store.GetPromoter(ctx, b.PromoterID)
	if err != nil {
		return nil, wrapDeadline(err)
	}
	if owner == nil {
		return nil, hierarchy.ErrPromoterNotFound
	}
	ownCommission := hierarchy.CommissionOn(b.ExpectedSpend, owner.Percentage)

	approvedAt := w.now()
	hist := &hierarchy.HistoricalBooking{
		PromoterID:    b.PromoterID,
		Date:          b.Date,
		PartySize:     b.PartySize,
		TableName:     b.TableName,
		ExpectedSpend: b.ExpectedSpend,
		Gifts:         b.Gifts,
		Notes:         b.Notes,
		Confirmation:  uuid.NewString(),
		Edited:        b.Edited,
		EditNotes:     b.EditNotes,
		EditedBy:      b.EditedBy,
		ApprovedAt:    approvedAt,
	}

	err = w.Store.WithTx(ctx, func(tx hierarchy.Store) error {
		if err := tx.AppendHistory(ctx, hist); err != nil {
			return fmt.Errorf("appending history: %w", err)
		}

		// Stats are keyed by the booking date, not the approval date, so a
		// late approval still lands in the month the table was booked for.
		if err := tx.AddMonthlyStats(ctx, b.PromoterID, b.Date.Year(), b.Date.Month(),
			int64(b.PartySize), 1, ownCommission); err != nil {
			return fmt.Errorf("monthly stats: %w", err)
		}

		prop := hierarchy.NewPropagator(tx)
		prop.Log = w.log()
		if err := prop.Propagate(ctx, hierarchy.ApprovedBooking{
			PromoterID: b.PromoterID,
			Month:      hierarchy.MonthOf(b.Date),
			PartySize:  b.PartySize,
			Spend:      b.ExpectedSpend,
		}); err != nil {
			return fmt.Errorf("propagating: %w", err)
		}

		// Commit point. After this the approval can never be replayed.
		if err := tx.DeleteBooking(ctx, b.ID); err != nil {
			return fmt.Errorf("deleting pending request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapDeadline(err)
	}

	w.log().WithFields(logrus.Fields{
		"booking":      b.ID,
		"promoter":     b.PromoterID,
		"confirmation": hist.Confirmation,
		"spend":        b.ExpectedSpend,
	}).Info("booking approved")
	return hist, nil
}

// =============================================================================
// REJECT
// =============================================================================

// Reject removes a pending booking without any aggregate side effects.
func (w *Workflow) Reject(ctx context.Context, bookingID int64, adminID hierarchy.NodeID) error {
	b, err := w.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return hierarchy.ErrBookingNotFound
	}
	if b.Status != hierarchy.BookingPending {
		return hierarchy.ErrBookingNotPending
	}

	walker := hierarchy.NewWalker(w.Store)
	walker.Log = w.log()
	ok, err := walker.InScope(ctx, adminID, b.PromoterID)
	if err != nil {
		return err
	}
	if !ok {
		return hierarchy.ErrNotAuthorized
	}

	if err := w.Store.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}
	w.log().WithFields(logrus.Fields{
		"booking":  b.ID,
		"promoter": b.PromoterID,
	}).Info("booking rejected")
	return nil
}

// wrapDeadline maps a context deadline to the domain timeout error.
func wrapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return hierarchy.ErrApprovalTimeout
	}
	return err
}
