/*
Package payments resolves who pays a promoter's commission and records payouts.

PAYER POLICY:
  - No parent, or the parent resolves to an admin: the admin pays.
  - Parent is a promoter with other children: the parent pays.
  - Parent is a promoter and the recipient is an only child: the admin pays.
    A parent whose sole downline is the recipient has no sibling revenue to
    retain a margin from, so the payment obligation skips to the top.

OUTSTANDING BALANCE:
  outstanding = accrued commission - sum of recorded payments. Payments are
  validated against it; a payout can never overshoot what is owed.

LEDGER:
  Each payout is an append-only ledger row plus an atomic lifetime_paid
  delta on the recipient, written in one transaction.
*/
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// PayerKind distinguishes admin payers from promoter payers.
type PayerKind string

const (
	PayerAdmin    PayerKind = "admin"
	PayerPromoter PayerKind = "promoter"
)

// Payer is the party responsible for settling a recipient's commission.
type Payer struct {
	Kind   PayerKind
	ID     hierarchy.NodeID
	Handle string
}

// Ledger resolves payers, computes outstanding balances, and records payouts.
type Ledger struct {
	Store hierarchy.TxStore
	Log   logrus.FieldLogger // optional
	Now   func() time.Time   // optional, for tests
}

func NewLedger(store hierarchy.TxStore) *Ledger {
	return &Ledger{Store: store}
}

func (l *Ledger) log() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	return logrus.StandardLogger()
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// =============================================================================
// PAYER RESOLUTION
// =============================================================================

// ResolvePayer determines who settles recipient's commission, adminID being
// the admin that owns the subtree.
func (l *Ledger) ResolvePayer(ctx context.Context, recipientID, adminID hierarchy.NodeID) (Payer, error) {
	recipient, err := l.Store.GetPromoter(ctx, recipientID)
	if err != nil {
		return Payer{}, err
	}
	if recipient == nil {
		return Payer{}, hierarchy.ErrPromoterNotFound
	}

	adminPayer := func() (Payer, error) {
		admin, err := l.Store.GetAdmin(ctx, adminID)
		if err != nil {
			return Payer{}, err
		}
		if admin == nil {
			return Payer{}, hierarchy.ErrAdminNotFound
		}
		return Payer{Kind: PayerAdmin, ID: admin.ID, Handle: admin.Handle}, nil
	}

	if recipient.ParentID == nil || *recipient.ParentID == recipient.ID {
		return adminPayer()
	}

	parent, err := l.Store.GetPromoter(ctx, *recipient.ParentID)
	if err != nil {
		return Payer{}, err
	}
	if parent == nil {
		// Parent id points at an admin or dangles; the admin settles.
		return adminPayer()
	}

	siblings, err := l.Store.CountSiblings(ctx, parent.ID, recipientID)
	if err != nil {
		return Payer{}, err
	}
	if siblings == 0 {
		// Only child: the parent has no sibling revenue to retain a margin
		// from, so the obligation skips to the admin.
		return adminPayer()
	}
	return Payer{Kind: PayerPromoter, ID: parent.ID, Handle: parent.Handle}, nil
}

// =============================================================================
// OUTSTANDING BALANCE
// =============================================================================

// Outstanding returns the unpaid part of a recipient's accrued commission.
func (l *Ledger) Outstanding(ctx context.Context, recipientID hierarchy.NodeID) (decimal.Decimal, error) {
	recipient, err := l.Store.GetPromoter(ctx, recipientID)
	if err != nil {
		return decimal.Zero, err
	}
	if recipient == nil {
		return decimal.Zero, hierarchy.ErrPromoterNotFound
	}

	paid, err := l.Store.SumPaymentsTo(ctx, recipientID)
	if err != nil {
		return decimal.Zero, err
	}
	return recipient.AccruedCommission.Sub(paid), nil
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordInput is one payout to record.
type RecordInput struct {
	RecipientID hierarchy.NodeID
	AdminID     hierarchy.NodeID  // the subtree-owning admin the actor acts for
	ActorID     *hierarchy.NodeID // paying promoter; nil when the admin pays
	Amount      decimal.Decimal
	Note        string
}

// Record validates and persists one payout. The acting admin must own the
// recipient's subtree, the actor must match the payer the policy resolves,
// and the amount must be positive and within the outstanding balance.
// Ledger row and lifetime_paid delta commit together.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*hierarchy.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", in.Amount, hierarchy.ErrInvalidAmount)
	}

	payer, err := l.ResolvePayer(ctx, in.RecipientID, in.AdminID)
	if err != nil {
		return nil, err
	}

	walker := hierarchy.NewWalker(l.Store)
	walker.Log = l.log()
	ok, err := walker.InScope(ctx, in.AdminID, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, hierarchy.ErrNotAuthorized
	}
	switch payer.Kind {
	case PayerAdmin:
		if in.ActorID != nil {
			return nil, hierarchy.ErrNotAuthorized
		}
	case PayerPromoter:
		if in.ActorID == nil || *in.ActorID != payer.ID {
			return nil, hierarchy.ErrNotAuthorized
		}
	}

	outstanding, err := l.Outstanding(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if in.Amount.GreaterThan(outstanding) {
		return nil, &hierarchy.ExceedsOutstandingError{
			RecipientID: in.RecipientID,
			Outstanding: outstanding,
			Requested:   in.Amount,
		}
	}

	payment := &hierarchy.Payment{
		ID:          uuid.NewString(),
		RecipientID: in.RecipientID,
		PayerID:     in.ActorID,
		Amount:      in.Amount,
		Note:        in.Note,
		PaidAt:      l.now(),
	}
	err = l.Store.WithTx(ctx, func(tx hierarchy.Store) error {
		if err := tx.AppendPayment(ctx, payment); err != nil {
			return fmt.Errorf("appending payment: %w", err)
		}
		if err := tx.AddLifetimePaid(ctx, in.RecipientID, in.Amount); err != nil {
			return fmt.Errorf("lifetime paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log().WithFields(logrus.Fields{
		"payment":   payment.ID,
		"recipient": in.RecipientID,
		"payer":     payer.Handle,
		"amount":    in.Amount,
	}).Info("commission payment recorded")
	return payment, nil
}

// History returns a recipient's payouts, newest first.
func (l *Ledger) History(ctx context.Context, recipientID hierarchy.NodeID) ([]hierarchy.Payment, error) {
	recipient, err := l.Store.GetPromoter(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, hierarchy.ErrPromoterNotFound
	}
	return l.Store.PaymentsTo(ctx, recipientID)
}
