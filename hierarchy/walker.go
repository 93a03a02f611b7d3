/*
walker.go - Parent/child traversal with cycle protection

PURPOSE:
  Pure traversal over the promoter hierarchy. No monetary computation here;
  the propagation engine and attribution calculator layer money on top.

FAILURE SEMANTICS:
  Malformed hierarchies are NOT fatal. A self-parenting row, a cycle, or a
  dangling parent reference truncates the walk: the caller proceeds with the
  partial chain and a warning is logged for operator follow-up. Availability
  of the commission system wins over strict validation.

BOUNDS:
  Every walk carries a visited set and a maximum depth (MaxDepth). A cycle is
  treated as having reached the top of the hierarchy - each node is visited
  at most once, so propagation over a cyclic chain still terminates and still
  credits every node exactly once.

SEE ALSO:
  - propagation.go: Uses Ascend for ancestor updates
  - attribution.go: Uses the same partition-by-parent view bottom-up
*/
package hierarchy

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MaxDepth bounds every traversal. Ten levels is far deeper than any real
// promoter tree; hitting the bound means malformed data.
const MaxDepth = 10

// Walker traverses the parent chain or child subtree of a promoter.
// It holds no state across calls; visited sets are scoped to one walk.
type Walker struct {
	Store Store
	Log   logrus.FieldLogger // optional; defaults to the standard logger
}

func NewWalker(store Store) *Walker {
	return &Walker{Store: store}
}

func (w *Walker) log() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return logrus.StandardLogger()
}

// =============================================================================
// ASCEND - Owner, parent, grandparent, ... up to the top
// =============================================================================

// Ascend returns the chain of promoter ids from start up toward the top of
// the hierarchy, start first. The walk stops at the first of:
//   - a nil parent (top of hierarchy)
//   - a parent that does not resolve to a promoter (admin or dangling ref)
//   - a self-reference (logged, treated as top)
//   - an already-visited node (cycle; logged, treated as top)
//   - MaxDepth levels
//
// A missing start node yields an empty chain and no error.
func (w *Walker) Ascend(ctx context.Context, start NodeID) ([]NodeID, error) {
	visited := make(map[NodeID]bool, 4)
	chain := make([]NodeID, 0, 4)

	current := start
	for depth := 0; depth < MaxDepth; depth++ {
		node, err := w.Store.GetPromoter(ctx, current)
		if err != nil {
			return chain, err
		}
		if node == nil {
			// Dangling reference mid-chain, or unknown start.
			return chain, nil
		}
		if visited[current] {
			w.log().WithFields(logrus.Fields{
				"promoter": current,
				"start":    start,
			}).Warn("hierarchy cycle detected during ascend, truncating")
			return chain, nil
		}
		visited[current] = true
		chain = append(chain, current)

		if node.ParentID == nil {
			return chain, nil
		}
		if *node.ParentID == current {
			w.log().WithField("promoter", current).
				Warn("promoter is its own parent, stopping ascend")
			return chain, nil
		}
		current = *node.ParentID
	}

	w.log().WithFields(logrus.Fields{
		"start": start,
		"depth": MaxDepth,
	}).Warn("ascend reached max depth, truncating")
	return chain, nil
}

// =============================================================================
// DESCEND - Full subtree below a node
// =============================================================================

// Descend returns all promoter ids in the subtree rooted at start, not
// including start itself (start may be an admin id). Collection order is
// breadth-first. Cross-links in malformed data are collected once.
func (w *Walker) Descend(ctx context.Context, start NodeID) ([]NodeID, error) {
	visited := map[NodeID]bool{start: true}
	var subtree []NodeID

	frontier := []NodeID{start}
	for depth := 0; depth < MaxDepth && len(frontier) > 0; depth++ {
		var next []NodeID
		for _, parent := range frontier {
			children, err := w.Store.ListChildren(ctx, parent)
			if err != nil {
				return subtree, err
			}
			for _, child := range children {
				if visited[child.ID] {
					w.log().WithFields(logrus.Fields{
						"promoter": child.ID,
						"parent":   parent,
					}).Warn("promoter reachable through two parents, skipping revisit")
					continue
				}
				visited[child.ID] = true
				subtree = append(subtree, child.ID)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return subtree, nil
}

// =============================================================================
// DERIVED QUERIES
// =============================================================================

// Level computes a promoter's hierarchy level: 0 for a promoter whose parent
// is nil or an admin, 1 for its direct reports, and so on, bounded at
// MaxDepth for malformed chains.
func (w *Walker) Level(ctx context.Context, id NodeID) (int, error) {
	chain, err := w.Ascend(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(chain) == 0 {
		return 0, nil
	}
	return len(chain) - 1, nil
}

// InScope reports whether the promoter pr sits inside adminID's hierarchy.
// A promoter whose chain tops out at a nil parent is considered in every
// admin's scope (it is admin-owned but not attached to a specific admin).
func (w *Walker) InScope(ctx context.Context, adminID, pr NodeID) (bool, error) {
	chain, err := w.Ascend(ctx, pr)
	if err != nil {
		return false, err
	}
	if len(chain) == 0 {
		return false, nil
	}

	top, err := w.Store.GetPromoter(ctx, chain[len(chain)-1])
	if err != nil {
		return false, err
	}
	if top == nil || top.ParentID == nil {
		return true, nil
	}
	// The chain stopped because the parent is not a promoter: either the
	// owning admin, or a dangling reference (also admin-owned by policy),
	// or a cycle/self-parent (treated as reaching the top).
	if *top.ParentID == top.ID {
		return true, nil
	}
	admin, err := w.Store.GetAdmin(ctx, *top.ParentID)
	if err != nil {
		return false, err
	}
	if admin != nil {
		return admin.ID == adminID, nil
	}
	// Dangling or cyclic parent reference: the walk truncated, so nobody
	// else can claim this subtree. Treat as in scope so commissions stay
	// operable while the data is repaired.
	return true, nil
}
