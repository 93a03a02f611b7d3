package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhaus/commission-engine/booking"
	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/hierarchy/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var friday = time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)

type fixture struct {
	mem      *store.Memory
	workflow *booking.Workflow
	admin    hierarchy.NodeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	a := &hierarchy.Admin{Handle: "boss"}
	require.NoError(t, mem.CreateAdmin(context.Background(), a))
	return &fixture{mem: mem, workflow: booking.NewWorkflow(mem), admin: a.ID}
}

func (f *fixture) addPromoter(t *testing.T, handle string, percentage float64, parent *hierarchy.NodeID) hierarchy.NodeID {
	t.Helper()
	p := &hierarchy.Promoter{
		Handle:     handle,
		ParentID:   parent,
		Percentage: decimal.NewFromFloat(percentage),
		Active:     true,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.mem.CreatePromoter(context.Background(), p))
	return p.ID
}

func (f *fixture) submit(t *testing.T, promoter hierarchy.NodeID, spend float64, people int) *hierarchy.Booking {
	t.Helper()
	b, err := f.workflow.Submit(context.Background(), booking.SubmitInput{
		PromoterID:    promoter,
		Date:          friday,
		PartySize:     people,
		TableName:     "VIP 3",
		ExpectedSpend: decimal.NewFromFloat(spend),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) getPromoter(t *testing.T, id hierarchy.NodeID) *hierarchy.Promoter {
	t.Helper()
	p, err := f.mem.GetPromoter(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func ref(id hierarchy.NodeID) *hierarchy.NodeID { return &id }

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_CreatesPendingBooking(t *testing.T) {
	// GIVEN: An active promoter
	// WHEN: They submit a table request
	// THEN: The request is stored as pending with the submitted details
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)

	b := f.submit(t, p, 850, 6)

	assert.NotZero(t, b.ID)
	assert.Equal(t, hierarchy.BookingPending, b.Status)
	assert.Equal(t, "VIP 3", b.TableName)

	pending, err := f.mem.ListPendingBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)

	// Party size must be positive.
	_, err := f.workflow.Submit(context.Background(), booking.SubmitInput{
		PromoterID: p, Date: friday, PartySize: 0, ExpectedSpend: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, hierarchy.ErrInvalidAmount)

	// Spend must be positive.
	_, err = f.workflow.Submit(context.Background(), booking.SubmitInput{
		PromoterID: p, Date: friday, PartySize: 4, ExpectedSpend: decimal.Zero,
	})
	assert.ErrorIs(t, err, hierarchy.ErrInvalidAmount)

	// Unknown promoter.
	_, err = f.workflow.Submit(context.Background(), booking.SubmitInput{
		PromoterID: 99, Date: friday, PartySize: 4, ExpectedSpend: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, hierarchy.ErrPromoterNotFound)
}

func TestSubmit_InactivePromoterRejected(t *testing.T) {
	// GIVEN: A deactivated promoter
	// WHEN: They submit a request
	// THEN: It is rejected as if the promoter did not exist
	f := newFixture(t)
	p := f.addPromoter(t, "gone", 10, nil)
	require.NoError(t, f.mem.SoftDeletePromoter(context.Background(), p, time.Now()))

	_, err := f.workflow.Submit(context.Background(), booking.SubmitInput{
		PromoterID: p, Date: friday, PartySize: 4, ExpectedSpend: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, hierarchy.ErrPromoterNotFound)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEdit_AmendsPendingOnly(t *testing.T) {
	// GIVEN: A pending booking
	// WHEN: An admin amends the spend and leaves the rest zero-valued
	// THEN: Only the spend changes and the audit trail records the edit
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)
	b := f.submit(t, p, 850, 6)

	edited, err := f.workflow.Edit(context.Background(), booking.EditInput{
		BookingID:     b.ID,
		ExpectedSpend: decimal.NewFromInt(1200),
		EditNotes:     "client upgraded the table",
		EditedBy:      "boss",
	})
	require.NoError(t, err)
	assert.True(t, edited.ExpectedSpend.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 6, edited.PartySize)
	assert.Equal(t, "VIP 3", edited.TableName)
	assert.True(t, edited.Date.Equal(friday))
	assert.True(t, edited.Edited)
	assert.Equal(t, "boss", edited.EditedBy)
}

func TestEdit_AmendsDate(t *testing.T) {
	// GIVEN: A pending booking for friday
	// WHEN: An admin moves it to saturday
	// THEN: The date changes and the other fields keep their values
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)
	b := f.submit(t, p, 850, 6)

	saturday := friday.AddDate(0, 0, 1)
	edited, err := f.workflow.Edit(context.Background(), booking.EditInput{
		BookingID: b.ID,
		Date:      saturday,
		EditNotes: "moved a day",
		EditedBy:  "boss",
	})
	require.NoError(t, err)
	assert.True(t, edited.Date.Equal(saturday))
	assert.True(t, edited.ExpectedSpend.Equal(decimal.NewFromInt(850)))
	assert.Equal(t, 6, edited.PartySize)
	assert.True(t, edited.Edited)
}

func TestEdit_MissingBooking(t *testing.T) {
	f := newFixture(t)
	_, err := f.workflow.Edit(context.Background(), booking.EditInput{BookingID: 42})
	assert.ErrorIs(t, err, hierarchy.ErrBookingNotFound)
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_FullSequence(t *testing.T) {
	// GIVEN: admin -> a (20%) -> b (10%), and b submits 1000 for 5 guests
	// WHEN: The admin approves
	// THEN: History gains a row, b and a both carry the sale, b's monthly
	//       stats count it, and the pending request is gone
	ctx := context.Background()
	f := newFixture(t)
	a := f.addPromoter(t, "a", 20, nil)
	b := f.addPromoter(t, "b", 10, ref(a))
	req := f.submit(t, b, 1000, 5)

	hist, err := f.workflow.Approve(ctx, req.ID, f.admin)
	require.NoError(t, err)
	assert.NotEmpty(t, hist.Confirmation)
	assert.Equal(t, b, hist.PromoterID)
	assert.True(t, hist.ExpectedSpend.Equal(decimal.NewFromInt(1000)))

	rows, err := f.mem.HistoryByPromoter(ctx, b)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, hist.Confirmation, rows[0].Confirmation)

	// Owner aggregates.
	owner := f.getPromoter(t, b)
	assert.True(t, owner.LifetimeSpend.Equal(decimal.NewFromInt(1000)))
	assert.True(t, owner.AccruedCommission.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(5), owner.LifetimePeople)

	// Ancestor accrues at its own rate on the same spend.
	parent := f.getPromoter(t, a)
	assert.True(t, parent.LifetimeSpend.Equal(decimal.NewFromInt(1000)))
	assert.True(t, parent.AccruedCommission.Equal(decimal.NewFromInt(200)))

	// Monthly stats on the owner only.
	stats, err := f.mem.MonthlyStats(ctx, b)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Bookings)
	assert.Equal(t, int64(5), stats[0].People)
	assert.True(t, stats[0].Commission.Equal(decimal.NewFromInt(100)))

	// The pending request is consumed.
	gone, err := f.mem.GetBooking(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestApprove_StatsKeyedByBookingDate(t *testing.T) {
	// GIVEN: A booking dated june 2024, approved much later
	// WHEN: The admin approves
	// THEN: Monthly stats and the rollup both land in june 2024, not in the
	//       approval month
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)

	june := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	b, err := f.workflow.Submit(ctx, booking.SubmitInput{
		PromoterID:    p,
		Date:          june,
		PartySize:     4,
		ExpectedSpend: decimal.NewFromInt(600),
	})
	require.NoError(t, err)

	_, err = f.workflow.Approve(ctx, b.ID, f.admin)
	require.NoError(t, err)

	stats, err := f.mem.MonthlyStats(ctx, p)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2024, stats[0].Year)
	assert.Equal(t, time.June, stats[0].Month)

	rollups, err := f.mem.MonthlyRollups(ctx, p)
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, hierarchy.Month("2024-06"), rollups[0].Month)
}

func TestApprove_Replay(t *testing.T) {
	// GIVEN: An already-approved booking
	// WHEN: The same id is approved again
	// THEN: Not found, and no aggregates move twice
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)
	req := f.submit(t, p, 1000, 5)

	_, err := f.workflow.Approve(ctx, req.ID, f.admin)
	require.NoError(t, err)

	_, err = f.workflow.Approve(ctx, req.ID, f.admin)
	assert.ErrorIs(t, err, hierarchy.ErrBookingNotFound)

	owner := f.getPromoter(t, p)
	assert.True(t, owner.AccruedCommission.Equal(decimal.NewFromInt(100)))
}

func TestApprove_OutOfScopeAdmin(t *testing.T) {
	// GIVEN: A promoter rooted under one admin and a second, unrelated admin
	// WHEN: The second admin tries to approve
	// THEN: ErrNotAuthorized and the request stays pending
	ctx := context.Background()
	f := newFixture(t)
	other := &hierarchy.Admin{Handle: "other"}
	require.NoError(t, f.mem.CreateAdmin(ctx, other))

	p := f.addPromoter(t, "mario", 10, ref(f.admin))
	req := f.submit(t, p, 500, 3)

	_, err := f.workflow.Approve(ctx, req.ID, other.ID)
	assert.ErrorIs(t, err, hierarchy.ErrNotAuthorized)

	still, err := f.mem.GetBooking(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, hierarchy.BookingPending, still.Status)
}

// =============================================================================
// REJECT
// =============================================================================

func TestReject_DiscardsWithoutSideEffects(t *testing.T) {
	// GIVEN: A pending booking
	// WHEN: The admin rejects it
	// THEN: It disappears and no aggregates or history rows exist
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "mario", 10, nil)
	req := f.submit(t, p, 900, 4)

	require.NoError(t, f.workflow.Reject(ctx, req.ID, f.admin))

	gone, err := f.mem.GetBooking(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	owner := f.getPromoter(t, p)
	assert.True(t, owner.LifetimeSpend.IsZero())
	assert.True(t, owner.AccruedCommission.IsZero())

	rows, err := f.mem.HistoryByPromoter(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReject_MissingBooking(t *testing.T) {
	f := newFixture(t)
	err := f.workflow.Reject(context.Background(), 42, f.admin)
	assert.ErrorIs(t, err, hierarchy.ErrBookingNotFound)
}
