package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/hierarchy/store"
)

// recordBooking writes an approved-booking history row so DirectStats sees it.
func recordBooking(t *testing.T, s hierarchy.Store, promoter hierarchy.NodeID, spend float64, people int) {
	t.Helper()
	require.NoError(t, s.AppendHistory(context.Background(), &hierarchy.HistoricalBooking{
		PromoterID:    promoter,
		Date:          time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
		PartySize:     people,
		ExpectedSpend: decimal.NewFromFloat(spend),
		Confirmation:  uuid.NewString(),
		ApprovedAt:    time.Now(),
	}))
}

func rowFor(rows []hierarchy.AttributionRow, handle string) *hierarchy.AttributionRow {
	for i := range rows {
		if rows[i].Handle == handle {
			return &rows[i]
		}
	}
	return nil
}

func newAdmin(t *testing.T, s hierarchy.Store, handle string) hierarchy.NodeID {
	t.Helper()
	a := &hierarchy.Admin{Handle: handle}
	require.NoError(t, s.CreateAdmin(context.Background(), a))
	return a.ID
}

// =============================================================================
// THE FOLD
// =============================================================================

func TestReport_ThreeLevels(t *testing.T) {
	// GIVEN: admin -> a (20%) -> b (10%); b has a 500 euro booking
	// WHEN: Building the report
	// THEN: b: subtree 500, gross 50, net 50
	//       a: subtree 500, gross 100, owed 50, net 50
	ctx := context.Background()
	mem := store.NewMemory()
	admin := newAdmin(t, mem, "boss")
	a := addPromoter(t, mem, "a", 20, nodeID(admin))
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	recordBooking(t, mem, b, 500, 4)

	rows, _, err := hierarchy.NewCalculator(mem).Report(ctx, admin)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ra := rowFor(rows, "a")
	require.NotNil(t, ra)
	assert.Equal(t, 0, ra.Level)
	assert.True(t, ra.CanPay)
	assert.True(t, ra.SubtreeRevenue.Equal(decimal.NewFromInt(500)))
	assert.True(t, ra.GrossEntitlement.Equal(decimal.NewFromInt(100)))
	assert.True(t, ra.OwedToChildren.Equal(decimal.NewFromInt(50)))
	assert.True(t, ra.NetRetained.Equal(decimal.NewFromInt(50)))

	rb := rowFor(rows, "b")
	require.NotNil(t, rb)
	assert.Equal(t, 1, rb.Level)
	assert.False(t, rb.CanPay)
	assert.Equal(t, "a", rb.ParentHandle)
	assert.True(t, rb.GrossEntitlement.Equal(decimal.NewFromInt(50)))
	assert.True(t, rb.OwedToChildren.IsZero())
	assert.True(t, rb.NetRetained.Equal(decimal.NewFromInt(50)))

	assert.Equal(t, a, ra.PromoterID)
	assert.Equal(t, b, rb.PromoterID)
}

func TestReport_SubtreeSumsChildren(t *testing.T) {
	// GIVEN: a (10%) with children b (5%) and c (5%); everyone has bookings
	// WHEN: Building the report
	// THEN: a's subtree revenue is its own plus both children's, and
	//       net == gross - owed for every row
	ctx := context.Background()
	mem := store.NewMemory()
	admin := newAdmin(t, mem, "boss")
	a := addPromoter(t, mem, "a", 10, nodeID(admin))
	b := addPromoter(t, mem, "b", 5, nodeID(a))
	c := addPromoter(t, mem, "c", 5, nodeID(a))
	recordBooking(t, mem, a, 1000, 6)
	recordBooking(t, mem, b, 400, 3)
	recordBooking(t, mem, c, 600, 4)

	rows, totals, err := hierarchy.NewCalculator(mem).Report(ctx, admin)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	ra := rowFor(rows, "a")
	assert.True(t, ra.SubtreeRevenue.Equal(decimal.NewFromInt(2000)))
	// gross 200, owed 20 + 30 = 50
	assert.True(t, ra.GrossEntitlement.Equal(decimal.NewFromInt(200)))
	assert.True(t, ra.OwedToChildren.Equal(decimal.NewFromInt(50)))

	for _, row := range rows {
		assert.True(t, row.NetRetained.Equal(row.GrossEntitlement.Sub(row.OwedToChildren)),
			"net invariant for %s", row.Handle)
	}

	// Only a is payable by the admin directly.
	assert.Equal(t, 1, totals.DirectPromoters)
	assert.Equal(t, 3, totals.TotalPromoters)
	assert.True(t, totals.SubtreeRevenue.Equal(decimal.NewFromInt(2000)))
}

func TestReport_ZeroPercentNode(t *testing.T) {
	// GIVEN: A 0% promoter with a revenue-generating child
	// WHEN: Building the report
	// THEN: Gross is zero and net is negative by the child's entitlement
	ctx := context.Background()
	mem := store.NewMemory()
	admin := newAdmin(t, mem, "boss")
	a := addPromoter(t, mem, "a", 0, nodeID(admin))
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	recordBooking(t, mem, b, 1000, 5)

	rows, _, err := hierarchy.NewCalculator(mem).Report(ctx, admin)
	require.NoError(t, err)

	ra := rowFor(rows, "a")
	assert.True(t, ra.GrossEntitlement.IsZero())
	assert.True(t, ra.NetRetained.Equal(decimal.NewFromInt(-100)))
}

func TestReport_Ordering(t *testing.T) {
	// GIVEN: Mixed levels and handles
	// WHEN: Building the report
	// THEN: Rows come level first, handle second
	ctx := context.Background()
	mem := store.NewMemory()
	admin := newAdmin(t, mem, "boss")
	z := addPromoter(t, mem, "zed", 10, nodeID(admin))
	addPromoter(t, mem, "amy", 10, nodeID(admin))
	addPromoter(t, mem, "bob", 5, nodeID(z))

	rows, _, err := hierarchy.NewCalculator(mem).Report(ctx, admin)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "amy", rows[0].Handle)
	assert.Equal(t, "zed", rows[1].Handle)
	assert.Equal(t, "bob", rows[2].Handle)
}

func TestReport_UnknownAdmin(t *testing.T) {
	_, _, err := hierarchy.NewCalculator(store.NewMemory()).Report(context.Background(), 99)
	assert.ErrorIs(t, err, hierarchy.ErrAdminNotFound)
}

func TestReport_CycleDoesNotDoubleCount(t *testing.T) {
	// GIVEN: a and b form a parent cycle, both with bookings
	// WHEN: Building the report
	// THEN: Every promoter appears exactly once and the fold terminates
	ctx := context.Background()
	mem := store.NewMemory()
	admin := newAdmin(t, mem, "boss")
	a := addPromoter(t, mem, "a", 10, nil)
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	forceParent(t, mem, a, nodeID(b))
	recordBooking(t, mem, a, 100, 1)
	recordBooking(t, mem, b, 200, 2)

	rows, _, err := hierarchy.NewCalculator(mem).Report(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_SubtreeTotals(t *testing.T) {
	// GIVEN: a with children b and c, all with bookings
	// WHEN: Building a's dashboard
	// THEN: Personal covers only a, subtree covers all three, children are
	//       listed with their own stats
	ctx := context.Background()
	mem := store.NewMemory()
	a := addPromoter(t, mem, "a", 10, nil)
	b := addPromoter(t, mem, "b", 5, nodeID(a))
	c := addPromoter(t, mem, "c", 5, nodeID(a))
	recordBooking(t, mem, a, 1000, 6)
	recordBooking(t, mem, b, 400, 3)
	recordBooking(t, mem, c, 600, 4)

	d, err := hierarchy.NewCalculator(mem).DashboardFor(ctx, a)
	require.NoError(t, err)

	assert.True(t, d.Personal.Revenue.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1), d.Personal.Bookings)
	assert.True(t, d.Subtree.Revenue.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, int64(3), d.Subtree.Bookings)
	assert.Equal(t, int64(13), d.Subtree.People)
	require.Len(t, d.Children, 2)
	// Ordered by revenue, highest first.
	assert.Equal(t, "c", d.Children[0].Handle)
}

func TestDashboard_UnknownPromoter(t *testing.T) {
	_, err := hierarchy.NewCalculator(store.NewMemory()).DashboardFor(context.Background(), 7)
	assert.ErrorIs(t, err, hierarchy.ErrPromoterNotFound)
}
