/*
Package roster manages the promoter roster: creation, reparenting,
deactivation, and the signup-request workflow where a promoter with powers
proposes a new promoter for admin approval.

VALIDATION AT THE EDGE:
  Self-parenting and cycles are rejected here, at mutation time. Traversal
  elsewhere still tolerates malformed rows that predate these checks; this
  package just stops new ones from being created.

SOFT DELETION:
  Deactivation flips the active flag and stamps deleted_at. The row, its
  history, and its aggregates survive, because historical attribution must
  keep resolving through deactivated nodes.
*/
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// Roster manages promoter accounts.
type Roster struct {
	Store hierarchy.TxStore
	Log   logrus.FieldLogger // optional
	Now   func() time.Time   // optional, for tests
}

func NewRoster(store hierarchy.TxStore) *Roster {
	return &Roster{Store: store}
}

func (r *Roster) log() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}

func (r *Roster) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// =============================================================================
// CREATE / UPDATE / DEACTIVATE
// =============================================================================

// CreateInput describes a new promoter.
type CreateInput struct {
	Handle     string
	Percentage decimal.Decimal
	ParentID   *hierarchy.NodeID
	Powers     bool
}

// Create validates and inserts a new promoter.
func (r *Roster) Create(ctx context.Context, in CreateInput) (*hierarchy.Promoter, error) {
	if !hierarchy.ValidPercentage(in.Percentage) {
		return nil, fmt.Errorf("percentage %s: %w", in.Percentage, hierarchy.ErrInvalidPercentage)
	}
	if in.Handle == "" {
		return nil, hierarchy.ErrInvalidHandle
	}

	existing, err := r.Store.GetPromoterByHandle(ctx, in.Handle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("handle %q: %w", in.Handle, hierarchy.ErrDuplicateHandle)
	}

	if in.ParentID != nil {
		if err := r.checkParent(ctx, *in.ParentID, 0); err != nil {
			return nil, err
		}
	}

	p := &hierarchy.Promoter{
		Handle:     in.Handle,
		ParentID:   in.ParentID,
		Percentage: in.Percentage,
		Powers:     in.Powers,
		Active:     true,
		CreatedAt:  r.now(),
	}
	if err := r.Store.CreatePromoter(ctx, p); err != nil {
		return nil, err
	}

	r.log().WithFields(logrus.Fields{
		"promoter": p.ID,
		"handle":   p.Handle,
	}).Info("promoter created")
	return p, nil
}

// UpdateInput carries the mutable promoter fields. Nil pointers leave the
// current value untouched; SetParent distinguishes "keep parent" from
// "clear parent".
type UpdateInput struct {
	ID         hierarchy.NodeID
	Handle     *string
	Percentage *decimal.Decimal
	Powers     *bool
	SetParent  bool
	ParentID   *hierarchy.NodeID
}

// Update applies the changes, re-running the cycle and handle checks that
// apply to the touched fields.
func (r *Roster) Update(ctx context.Context, in UpdateInput) (*hierarchy.Promoter, error) {
	p, err := r.Store.GetPromoter(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, hierarchy.ErrPromoterNotFound
	}

	if in.Handle != nil && *in.Handle != p.Handle {
		existing, err := r.Store.GetPromoterByHandle(ctx, *in.Handle)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != p.ID {
			return nil, fmt.Errorf("handle %q: %w", *in.Handle, hierarchy.ErrDuplicateHandle)
		}
		p.Handle = *in.Handle
	}
	if in.Percentage != nil {
		if !hierarchy.ValidPercentage(*in.Percentage) {
			return nil, fmt.Errorf("percentage %s: %w", *in.Percentage, hierarchy.ErrInvalidPercentage)
		}
		p.Percentage = *in.Percentage
	}
	if in.Powers != nil {
		p.Powers = *in.Powers
	}
	if in.SetParent {
		if in.ParentID != nil {
			if *in.ParentID == p.ID {
				return nil, hierarchy.ErrSelfParent
			}
			if err := r.checkParent(ctx, *in.ParentID, p.ID); err != nil {
				return nil, err
			}
		}
		p.ParentID = in.ParentID
	}

	if err := r.Store.UpdatePromoter(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate soft-deletes a promoter. History and aggregates are retained.
func (r *Roster) Deactivate(ctx context.Context, id hierarchy.NodeID) error {
	p, err := r.Store.GetPromoter(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return hierarchy.ErrPromoterNotFound
	}
	if err := r.Store.SoftDeletePromoter(ctx, id, r.now()); err != nil {
		return err
	}
	r.log().WithFields(logrus.Fields{
		"promoter": id,
		"handle":   p.Handle,
	}).Info("promoter deactivated")
	return nil
}

// checkParent verifies the new parent exists as a promoter or an admin, and
// that hanging child under it closes no cycle. child is 0 at creation time,
// when no cycle is possible.
func (r *Roster) checkParent(ctx context.Context, parent hierarchy.NodeID, child hierarchy.NodeID) error {
	p, err := r.Store.GetPromoter(ctx, parent)
	if err != nil {
		return err
	}
	if p == nil {
		a, err := r.Store.GetAdmin(ctx, parent)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("parent %d: %w", parent, hierarchy.ErrPromoterNotFound)
		}
		return nil
	}

	if child == 0 {
		return nil
	}
	// If child is an ancestor of the proposed parent, the assignment closes
	// a cycle.
	walker := hierarchy.NewWalker(r.Store)
	walker.Log = r.log()
	chain, err := walker.Ascend(ctx, parent)
	if err != nil {
		return err
	}
	for _, id := range chain {
		if id == child {
			return hierarchy.ErrParentCycle
		}
	}
	return nil
}

// =============================================================================
// SIGNUP REQUESTS
// =============================================================================

// SignupInput is a powered promoter's proposal for a new promoter.
type SignupInput struct {
	RequesterID      hierarchy.NodeID
	Handle           string
	Percentage       decimal.Decimal
	ProposedParentID *hierarchy.NodeID
	Note             string
}

// SubmitSignup records a signup proposal. Only promoters with powers may
// propose; the proposal itself creates nothing until an admin approves it.
func (r *Roster) SubmitSignup(ctx context.Context, in SignupInput) (*hierarchy.SignupRequest, error) {
	requester, err := r.Store.GetPromoter(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil || !requester.Active {
		return nil, hierarchy.ErrPromoterNotFound
	}
	if !requester.Powers {
		return nil, hierarchy.ErrNotAuthorized
	}
	if !hierarchy.ValidPercentage(in.Percentage) {
		return nil, fmt.Errorf("percentage %s: %w", in.Percentage, hierarchy.ErrInvalidPercentage)
	}
	// A recruiter cannot grant a recruit a better rate than their own.
	if in.Percentage.GreaterThan(requester.Percentage) {
		return nil, fmt.Errorf("percentage %s exceeds requester's %s: %w",
			in.Percentage, requester.Percentage, hierarchy.ErrInvalidPercentage)
	}

	req := &hierarchy.SignupRequest{
		Handle:           in.Handle,
		Percentage:       in.Percentage,
		RequesterID:      in.RequesterID,
		ProposedParentID: in.ProposedParentID,
		Note:             in.Note,
		Status:           hierarchy.SignupPending,
		RequestedAt:      r.now(),
	}
	if err := r.Store.CreateSignupRequest(ctx, req); err != nil {
		return nil, err
	}

	r.log().WithFields(logrus.Fields{
		"signup":    req.ID,
		"requester": in.RequesterID,
		"handle":    in.Handle,
	}).Info("signup request submitted")
	return req, nil
}

// ApproveSignup creates the proposed promoter and marks the request
// approved, atomically where the store supports transactions.
func (r *Roster) ApproveSignup(ctx context.Context, id int64, adminNote string) (*hierarchy.Promoter, error) {
	req, err := r.Store.GetSignupRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, hierarchy.ErrSignupNotFound
	}
	if req.Status != hierarchy.SignupPending {
		return nil, hierarchy.ErrSignupNotPending
	}

	existing, err := r.Store.GetPromoterByHandle(ctx, req.Handle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("handle %q: %w", req.Handle, hierarchy.ErrDuplicateHandle)
	}

	p := &hierarchy.Promoter{
		Handle:     req.Handle,
		ParentID:   req.ProposedParentID,
		Percentage: req.Percentage,
		Active:     true,
		CreatedAt:  r.now(),
	}
	err = r.Store.WithTx(ctx, func(tx hierarchy.Store) error {
		if err := tx.CreatePromoter(ctx, p); err != nil {
			return err
		}
		return tx.ResolveSignupRequest(ctx, id, hierarchy.SignupApproved, adminNote, r.now())
	})
	if err != nil {
		return nil, err
	}

	r.log().WithFields(logrus.Fields{
		"signup":   id,
		"promoter": p.ID,
		"handle":   p.Handle,
	}).Info("signup request approved")
	return p, nil
}

// RejectSignup marks a pending request rejected.
func (r *Roster) RejectSignup(ctx context.Context, id int64, adminNote string) error {
	req, err := r.Store.GetSignupRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return hierarchy.ErrSignupNotFound
	}
	if req.Status != hierarchy.SignupPending {
		return hierarchy.ErrSignupNotPending
	}
	return r.Store.ResolveSignupRequest(ctx, id, hierarchy.SignupRejected, adminNote, r.now())
}
