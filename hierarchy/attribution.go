/*
attribution.go - Bottom-up subtree fold for commission reporting

PURPOSE:
  Produces, per promoter, the reconciliation of gross entitlement against
  downstream obligations:

    subtree_revenue(n)   = direct_revenue(n) + sum over children of subtree_revenue(c)
    gross_entitlement(n) = subtree_revenue(n) * pct(n) / 100
    owed_to_children(n)  = sum over direct children of subtree_revenue(c) * pct(c) / 100
    net_retained(n)      = gross_entitlement(n) - owed_to_children(n)

  This fold is the AUTHORITATIVE take-home figure. The running accrued
  balance maintained by propagation.go is a simpler overlapping counter
  (see the dual-bookkeeping note there).

TREE CONSTRUCTION:
  The hierarchy is reconstructed by query: all promoters are partitioned by
  parent id, roots are promoters whose parent is nil or resolves to an admin.
  Cross-links and cycles are neutralized with a visited set - a node is
  folded at most once.

SEE ALSO:
  - propagation.go: The incremental counter this fold reconciles against
  - walker.go: Level computation for the flattened report
*/
package hierarchy

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT ROWS
// =============================================================================

// AttributionRow is one promoter's line in the hierarchy report.
type AttributionRow struct {
	PromoterID   NodeID
	Handle       string
	Percentage   decimal.Decimal
	ParentID     *NodeID
	ParentHandle string // "" for admin-owned roots
	Level        int    // 0 = direct child of an admin
	CanPay       bool   // true if the reporting admin is the direct parent

	DirectRevenue  decimal.Decimal
	DirectBookings int64
	DirectPeople   int64

	SubtreeRevenue   decimal.Decimal
	GrossEntitlement decimal.Decimal
	OwedToChildren   decimal.Decimal
	NetRetained      decimal.Decimal
}

// ReportTotals aggregates the rows payable by the reporting admin.
type ReportTotals struct {
	DirectPromoters  int
	TotalPromoters   int
	People           int64
	Bookings         int64
	SubtreeRevenue   decimal.Decimal
	GrossEntitlement decimal.Decimal
	NetRetained      decimal.Decimal
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator runs the attribution fold. Stateless across calls.
type Calculator struct {
	Store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{Store: store}
}

// node is the in-memory tree built for one report run.
type node struct {
	p        Promoter
	direct   DirectStats
	children []*node

	subtreeRevenue decimal.Decimal
	gross          decimal.Decimal
	owed           decimal.Decimal
	net            decimal.Decimal
	level          int
}

// Report computes the full attribution report from adminID's point of view.
// All admin-rooted promoters are included; CanPay marks the reporting
// admin's direct children. Rows are ordered by hierarchy level, then handle.
func (c *Calculator) Report(ctx context.Context, adminID NodeID) ([]AttributionRow, ReportTotals, error) {
	admin, err := c.Store.GetAdmin(ctx, adminID)
	if err != nil {
		return nil, ReportTotals{}, err
	}
	if admin == nil {
		return nil, ReportTotals{}, ErrAdminNotFound
	}

	promoters, err := c.Store.ListPromoters(ctx)
	if err != nil {
		return nil, ReportTotals{}, err
	}

	admins, err := c.Store.ListAdmins(ctx)
	if err != nil {
		return nil, ReportTotals{}, err
	}
	adminIDs := make(map[NodeID]bool, len(admins))
	adminHandles := make(map[NodeID]string, len(admins))
	for _, a := range admins {
		adminIDs[a.ID] = true
		adminHandles[a.ID] = a.Handle
	}

	byID := make(map[NodeID]*node, len(promoters))
	for _, p := range promoters {
		stats, err := c.Store.DirectStats(ctx, p.ID)
		if err != nil {
			return nil, ReportTotals{}, fmt.Errorf("direct stats for promoter %d: %w", p.ID, err)
		}
		byID[p.ID] = &node{p: p, direct: stats}
	}

	// Partition by parent. A promoter is a root when its parent is nil,
	// resolves to an admin, or dangles.
	var roots []*node
	for _, n := range byID {
		if n.p.ParentID == nil || *n.p.ParentID == n.p.ID {
			roots = append(roots, n)
			continue
		}
		if parent, ok := byID[*n.p.ParentID]; ok {
			parent.children = append(parent.children, n)
			continue
		}
		roots = append(roots, n)
	}

	// Post-order fold, cycle-safe.
	visited := make(map[NodeID]bool, len(byID))
	for _, r := range roots {
		c.fold(r, 0, visited)
	}
	// Nodes unreachable from any root (pure cycles) still get folded so
	// every promoter appears in the report.
	for _, n := range byID {
		if !visited[n.p.ID] {
			c.fold(n, 0, visited)
		}
	}

	rows := make([]AttributionRow, 0, len(byID))
	for _, n := range byID {
		row := AttributionRow{
			PromoterID:       n.p.ID,
			Handle:           n.p.Handle,
			Percentage:       n.p.Percentage,
			ParentID:         n.p.ParentID,
			Level:            n.level,
			DirectRevenue:    n.direct.Revenue,
			DirectBookings:   n.direct.Bookings,
			DirectPeople:     n.direct.People,
			SubtreeRevenue:   n.subtreeRevenue,
			GrossEntitlement: n.gross,
			OwedToChildren:   n.owed,
			NetRetained:      n.net,
		}
		if n.p.ParentID != nil {
			if parent, ok := byID[*n.p.ParentID]; ok {
				row.ParentHandle = parent.p.Handle
			} else {
				row.ParentHandle = adminHandles[*n.p.ParentID]
			}
			row.CanPay = *n.p.ParentID == adminID
		} else {
			row.CanPay = true
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Level != rows[j].Level {
			return rows[i].Level < rows[j].Level
		}
		return rows[i].Handle < rows[j].Handle
	})

	totals := ReportTotals{TotalPromoters: len(rows)}
	for _, row := range rows {
		if !row.CanPay {
			continue
		}
		totals.DirectPromoters++
		totals.People += row.DirectPeople
		totals.Bookings += row.DirectBookings
		totals.SubtreeRevenue = totals.SubtreeRevenue.Add(row.SubtreeRevenue)
		totals.GrossEntitlement = totals.GrossEntitlement.Add(row.GrossEntitlement)
		totals.NetRetained = totals.NetRetained.Add(row.NetRetained)
	}
	return rows, totals, nil
}

// fold computes the subtree aggregates for n and its descendants, post-order.
// Returns n's subtree revenue. Already-visited nodes contribute zero to the
// caller, preventing double counting through cross-links.
func (c *Calculator) fold(n *node, level int, visited map[NodeID]bool) decimal.Decimal {
	if visited[n.p.ID] {
		return decimal.Zero
	}
	visited[n.p.ID] = true
	n.level = level

	subtree := n.direct.Revenue
	owed := decimal.Zero
	for _, child := range n.children {
		childRevenue := c.fold(child, level+1, visited)
		subtree = subtree.Add(childRevenue)
		owed = owed.Add(CommissionOn(childRevenue, child.p.Percentage))
	}

	n.subtreeRevenue = subtree
	n.gross = CommissionOn(subtree, n.p.Percentage)
	n.owed = owed
	n.net = n.gross.Sub(owed)
	return subtree
}

// =============================================================================
// DASHBOARD - One promoter's personal + subtree view
// =============================================================================

// ChildSummary is one direct child's line on a promoter's dashboard.
type ChildSummary struct {
	PromoterID NodeID
	Handle     string
	Bookings   int64
	Revenue    decimal.Decimal
	Accrued    decimal.Decimal
	People     int64
}

// Dashboard is the per-promoter summary served to the promoter itself.
type Dashboard struct {
	Promoter Promoter

	Personal DirectStats
	Subtree  DirectStats // personal + all descendants

	Rollups  []RollupRow
	Children []ChildSummary
}

// DashboardFor assembles a promoter's dashboard: personal stats, subtree
// totals, monthly rollups, and a per-direct-child breakdown.
func (c *Calculator) DashboardFor(ctx context.Context, id NodeID) (*Dashboard, error) {
	p, err := c.Store.GetPromoter(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPromoterNotFound
	}

	personal, err := c.Store.DirectStats(ctx, id)
	if err != nil {
		return nil, err
	}

	walker := NewWalker(c.Store)
	subtreeIDs, err := walker.Descend(ctx, id)
	if err != nil {
		return nil, err
	}
	subtree := personal
	for _, descendant := range subtreeIDs {
		stats, err := c.Store.DirectStats(ctx, descendant)
		if err != nil {
			return nil, err
		}
		subtree.Revenue = subtree.Revenue.Add(stats.Revenue)
		subtree.Bookings += stats.Bookings
		subtree.People += stats.People
	}

	rollups, err := c.Store.MonthlyRollups(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := c.Store.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries := make([]ChildSummary, 0, len(children))
	for _, child := range children {
		stats, err := c.Store.DirectStats(ctx, child.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ChildSummary{
			PromoterID: child.ID,
			Handle:     child.Handle,
			Bookings:   stats.Bookings,
			Revenue:    stats.Revenue,
			Accrued:    child.AccruedCommission,
			People:     stats.People,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Revenue.GreaterThan(summaries[j].Revenue)
	})

	return &Dashboard{
		Promoter: *p,
		Personal: personal,
		Subtree:  subtree,
		Rollups:  rollups,
		Children: summaries,
	}, nil
}
