package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/hierarchy/store"
	"github.com/clubhaus/commission-engine/payments"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	mem    *store.Memory
	ledger *payments.Ledger
	admin  hierarchy.NodeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	a := &hierarchy.Admin{Handle: "boss"}
	require.NoError(t, mem.CreateAdmin(context.Background(), a))
	return &fixture{mem: mem, ledger: payments.NewLedger(mem), admin: a.ID}
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

func (f *fixture) accrue(t *testing.T, id hierarchy.NodeID, amount float64) {
	t.Helper()
	require.NoError(t, f.mem.AddAccruedCommission(context.Background(), id, decimal.NewFromFloat(amount)))
}

func ref(id hierarchy.NodeID) *hierarchy.NodeID { return &id }

// =============================================================================
// PAYER POLICY
// =============================================================================

func TestResolvePayer_NoParent_AdminPays(t *testing.T) {
	// GIVEN: A promoter with no parent
	// WHEN: Resolving its payer
	// THEN: The admin pays
	f := newFixture(t)
	p := f.addPromoter(t, "solo", 10, nil)

	payer, err := f.ledger.ResolvePayer(context.Background(), p, f.admin)
	require.NoError(t, err)
	assert.Equal(t, payments.PayerAdmin, payer.Kind)
	assert.Equal(t, f.admin, payer.ID)
}

func TestResolvePayer_ParentIsAdmin_AdminPays(t *testing.T) {
	// GIVEN: A promoter whose parent id is the admin's id
	// WHEN: Resolving its payer
	// THEN: The admin pays
	f := newFixture(t)
	p := f.addPromoter(t, "direct", 10, ref(f.admin))

	payer, err := f.ledger.ResolvePayer(context.Background(), p, f.admin)
	require.NoError(t, err)
	assert.Equal(t, payments.PayerAdmin, payer.Kind)
}

func TestResolvePayer_ParentWithSiblings_ParentPays(t *testing.T) {
	// GIVEN: A parent promoter with two children
	// WHEN: Resolving either child's payer
	// THEN: The parent pays
	f := newFixture(t)
	parent := f.addPromoter(t, "capo", 20, nil)
	child := f.addPromoter(t, "kid", 10, ref(parent))
	f.addPromoter(t, "sibling", 10, ref(parent))

	payer, err := f.ledger.ResolvePayer(context.Background(), child, f.admin)
	require.NoError(t, err)
	assert.Equal(t, payments.PayerPromoter, payer.Kind)
	assert.Equal(t, parent, payer.ID)
	assert.Equal(t, "capo", payer.Handle)
}

func TestResolvePayer_OnlyChild_SkipsToAdmin(t *testing.T) {
	// GIVEN: A parent whose sole downline is the recipient
	// WHEN: Resolving the recipient's payer
	// THEN: The obligation skips past the parent to the admin
	f := newFixture(t)
	parent := f.addPromoter(t, "capo", 20, nil)
	only := f.addPromoter(t, "only", 10, ref(parent))

	payer, err := f.ledger.ResolvePayer(context.Background(), only, f.admin)
	require.NoError(t, err)
	assert.Equal(t, payments.PayerAdmin, payer.Kind)
}

func TestResolvePayer_UnknownRecipient(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ResolvePayer(context.Background(), 99, f.admin)
	assert.ErrorIs(t, err, hierarchy.ErrPromoterNotFound)
}

// =============================================================================
// OUTSTANDING & RECORDING
// =============================================================================

func TestRecord_AdminPaysAndBalancesMove(t *testing.T) {
	// GIVEN: A parentless promoter with 150 accrued
	// WHEN: The admin records a 100 payment
	// THEN: Outstanding drops to 50 and lifetime paid rises to 100
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "solo", 10, nil)
	f.accrue(t, p, 150)

	payment, err := f.ledger.Record(ctx, payments.RecordInput{
		RecipientID: p,
		AdminID:     f.admin,
		Amount:      decimal.NewFromInt(100),
		Note:        "august payout",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.Nil(t, payment.PayerID)

	outstanding, err := f.ledger.Outstanding(ctx, p)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(50)))

	got, err := f.mem.GetPromoter(ctx, p)
	require.NoError(t, err)
	assert.True(t, got.LifetimePaid.Equal(decimal.NewFromInt(100)))
}

func TestRecord_ParentPays(t *testing.T) {
	// GIVEN: A child with siblings, so the parent is the payer
	// WHEN: The parent records the payment
	// THEN: It is accepted and attributed to the parent
	ctx := context.Background()
	f := newFixture(t)
	parent := f.addPromoter(t, "capo", 20, nil)
	child := f.addPromoter(t, "kid", 10, ref(parent))
	f.addPromoter(t, "sibling", 10, ref(parent))
	f.accrue(t, child, 80)

	payment, err := f.ledger.Record(ctx, payments.RecordInput{
		RecipientID: child,
		AdminID:     f.admin,
		ActorID:     ref(parent),
		Amount:      decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	require.NotNil(t, payment.PayerID)
	assert.Equal(t, parent, *payment.PayerID)
}

func TestRecord_WrongActorRejected(t *testing.T) {
	// GIVEN: The policy resolves the parent as payer
	// WHEN: The admin (nil actor) tries to pay instead
	// THEN: ErrNotAuthorized
	ctx := context.Background()
	f := newFixture(t)
	parent := f.addPromoter(t, "capo", 20, nil)
	child := f.addPromoter(t, "kid", 10, ref(parent))
	f.addPromoter(t, "sibling", 10, ref(parent))
	f.accrue(t, child, 80)

	_, err := f.ledger.Record(ctx, payments.RecordInput{
		RecipientID: child,
		AdminID:     f.admin,
		Amount:      decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, hierarchy.ErrNotAuthorized)
}

func TestRecord_OutOfScopeAdminRejected(t *testing.T) {
	// GIVEN: A promoter rooted under one admin and a second, unrelated admin
	// WHEN: The second admin records a payment to the promoter
	// THEN: ErrNotAuthorized and no balance moves
	ctx := context.Background()
	f := newFixture(t)
	stranger := &hierarchy.Admin{Handle: "stranger"}
	require.NoError(t, f.mem.CreateAdmin(ctx, stranger))

	p := f.addPromoter(t, "mario", 10, ref(f.admin))
	f.accrue(t, p, 100)

	_, err := f.ledger.Record(ctx, payments.RecordInput{
		RecipientID: p,
		AdminID:     stranger.ID,
		Amount:      decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, hierarchy.ErrNotAuthorized)

	outstanding, err := f.ledger.Outstanding(ctx, p)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(100)))

	history, err := f.ledger.History(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecord_OverpayRejected(t *testing.T) {
	// GIVEN: 50 outstanding
	// WHEN: Recording 60
	// THEN: ErrExceedsOutstanding with the numbers attached
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "solo", 10, nil)
	f.accrue(t, p, 50)

	_, err := f.ledger.Record(ctx, payments.RecordInput{
		RecipientID: p,
		AdminID:     f.admin,
		Amount:      decimal.NewFromInt(60),
	})
	require.ErrorIs(t, err, hierarchy.ErrExceedsOutstanding)

	var exceeds *hierarchy.ExceedsOutstandingError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Outstanding.Equal(decimal.NewFromInt(50)))
	assert.True(t, exceeds.Requested.Equal(decimal.NewFromInt(60)))
}

func TestRecord_NonPositiveRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "solo", 10, nil)
	f.accrue(t, p, 50)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := f.ledger.Record(ctx, payments.RecordInput{
			RecipientID: p,
			AdminID:     f.admin,
			Amount:      amount,
		})
		assert.ErrorIs(t, err, hierarchy.ErrInvalidAmount)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	// GIVEN: Two recorded payments
	// WHEN: Reading history
	// THEN: Both appear, newest first
	ctx := context.Background()
	f := newFixture(t)
	p := f.addPromoter(t, "solo", 10, nil)
	f.accrue(t, p, 100)

	now := time.Now()
	f.ledger.Now = func() time.Time { return now.Add(-time.Hour) }
	_, err := f.ledger.Record(ctx, payments.RecordInput{RecipientID: p, AdminID: f.admin, Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)
	f.ledger.Now = func() time.Time { return now }
	_, err = f.ledger.Record(ctx, payments.RecordInput{RecipientID: p, AdminID: f.admin, Amount: decimal.NewFromInt(20)})
	require.NoError(t, err)

	history, err := f.ledger.History(ctx, p)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.True(t, history[1].Amount.Equal(decimal.NewFromInt(30)))
}
