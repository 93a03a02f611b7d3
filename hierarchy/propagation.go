/*
propagation.go - Incremental aggregate updates on booking approval

PURPOSE:
  On each approved booking, updates the monthly rollup, lifetime totals, and
  accrued-commission balance for the booking owner and every ancestor in its
  parent chain. This is the write-heavy half of the dual bookkeeping; the
  read-side reconciliation lives in attribution.go.

DUAL BOOKKEEPING:
  Each visited node's accrued-commission balance is credited with the node's
  OWN percentage applied to the booking spend. Intermediate levels therefore
  accumulate overlapping credit: the balance is a simple running counter used
  by the payment resolver's "how much is owed" check, NOT the authoritative
  take-home figure. The attribution calculator's subtree fold is authoritative
  for net margin. Do not unify the two - unifying changes observable payouts.

NOT IDEMPOTENT:
  Propagating the same approval twice double-counts every aggregate. The
  booking approval workflow guarantees at-most-once invocation by deleting
  the pending request row in the same logical operation.

SEE ALSO:
  - walker.go: Supplies the cycle-protected ancestor chain
  - attribution.go: The authoritative net-margin fold
  - booking/workflow.go: The only production caller
*/
package hierarchy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ApprovedBooking is the propagation input: the facts of one approval.
type ApprovedBooking struct {
	PromoterID NodeID
	Month      Month
	PartySize  int
	Spend      decimal.Decimal
}

// Propagator applies one approval's deltas up the parent chain.
type Propagator struct {
	Store  Store
	Walker *Walker
	Log    logrus.FieldLogger // optional
}

func NewPropagator(store Store) *Propagator {
	return &Propagator{Store: store, Walker: NewWalker(store)}
}

func (p *Propagator) log() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	return logrus.StandardLogger()
}

// Propagate walks from the booking owner to the top of its chain, applying
// at every visited node, as atomic store deltas:
//
//	monthly rollup  += spend
//	lifetime spend  += spend
//	lifetime people += party size
//	accrued balance += spend * node's own percentage / 100
//
// Traversal truncation (cycle, self-parent, dangling ref) is not an error:
// the nodes visited before the truncation keep their updates.
//
// NOT idempotent. Callers must guarantee at-most-once invocation per booking.
func (p *Propagator) Propagate(ctx context.Context, ev ApprovedBooking) error {
	walker := p.Walker
	if walker == nil {
		walker = NewWalker(p.Store)
	}

	chain, err := walker.Ascend(ctx, ev.PromoterID)
	if err != nil {
		return fmt.Errorf("ascending from promoter %d: %w", ev.PromoterID, err)
	}
	if len(chain) == 0 {
		return ErrPromoterNotFound
	}

	for _, id := range chain {
		node, err := p.Store.GetPromoter(ctx, id)
		if err != nil {
			return fmt.Errorf("loading promoter %d: %w", id, err)
		}
		if node == nil {
			// The chain was computed a moment ago; a vanished node means
			// concurrent repair. Stop here, keep what's been applied.
			p.log().WithField("promoter", id).
				Warn("promoter disappeared mid-propagation, truncating")
			return nil
		}

		if err := p.Store.AddMonthlyRollup(ctx, id, ev.Month, ev.Spend); err != nil {
			return fmt.Errorf("rollup for promoter %d: %w", id, err)
		}
		if err := p.Store.AddLifetimeTotals(ctx, id, ev.Spend, int64(ev.PartySize)); err != nil {
			return fmt.Errorf("lifetime totals for promoter %d: %w", id, err)
		}

		credit := CommissionOn(ev.Spend, node.Percentage)
		if err := p.Store.AddAccruedCommission(ctx, id, credit); err != nil {
			return fmt.Errorf("accrued commission for promoter %d: %w", id, err)
		}

		p.log().WithFields(logrus.Fields{
			"promoter": id,
			"month":    ev.Month,
			"spend":    ev.Spend,
			"credit":   credit,
		}).Debug("propagated booking aggregates")
	}
	return nil
}
