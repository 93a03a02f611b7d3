package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/hierarchy/store"
)

func addPromoter(t *testing.T, m *store.Memory, handle string, parent *hierarchy.NodeID) *hierarchy.Promoter {
	t.Helper()
	p := &hierarchy.Promoter{
		Handle:     handle,
		ParentID:   parent,
		Percentage: decimal.NewFromInt(10),
		Active:     true,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.CreatePromoter(context.Background(), p))
	return p
}

func TestMemory_AdminAndPromoterKeyspacesDisjoint(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Creating an admin and a promoter
	// THEN: Their id ranges never collide
	ctx := context.Background()
	m := store.NewMemory()

	a := &hierarchy.Admin{Handle: "boss"}
	require.NoError(t, m.CreateAdmin(ctx, a))
	p := addPromoter(t, m, "mario", nil)

	assert.Greater(t, int64(a.ID), int64(1_000_000))
	assert.Less(t, int64(p.ID), int64(1_000_000))
}

func TestMemory_HandleLookupIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	created := addPromoter(t, m, "Mario", nil)

	got, err := m.GetPromoterByHandle(ctx, "mArIo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	// GIVEN: A stored promoter
	// WHEN: A caller mutates the struct a read returned
	// THEN: The stored row is unaffected
	ctx := context.Background()
	m := store.NewMemory()
	p := addPromoter(t, m, "mario", nil)

	first, err := m.GetPromoter(ctx, p.ID)
	require.NoError(t, err)
	first.Handle = "scribbled"

	second, err := m.GetPromoter(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mario", second.Handle)
}

func TestMemory_ListChildrenSkipsSelfParent(t *testing.T) {
	// A row whose parent id equals its own id is malformed and must not
	// surface as its own child.
	ctx := context.Background()
	m := store.NewMemory()
	p := addPromoter(t, m, "loop", nil)
	p.ParentID = &p.ID
	require.NoError(t, m.UpdatePromoter(ctx, p))

	children, err := m.ListChildren(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	n, err := m.CountSiblings(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that mutates several tables and then fails
	// WHEN: It returns the error
	// THEN: Every mutation is rolled back to the pre-transaction snapshot
	ctx := context.Background()
	m := store.NewMemory()
	p := addPromoter(t, m, "mario", nil)

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx hierarchy.Store) error {
		if err := tx.AddAccruedCommission(ctx, p.ID, decimal.NewFromInt(100)); err != nil {
			return err
		}
		if err := tx.AddMonthlyRollup(ctx, p.ID, "2026-08", decimal.NewFromInt(500)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.GetPromoter(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.AccruedCommission.IsZero())

	rollups, err := m.MonthlyRollups(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rollups)
}

func TestMemory_WithTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	p := addPromoter(t, m, "mario", nil)

	err := m.WithTx(ctx, func(tx hierarchy.Store) error {
		return tx.AddAccruedCommission(ctx, p.ID, decimal.NewFromInt(100))
	})
	require.NoError(t, err)

	got, err := m.GetPromoter(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.AccruedCommission.Equal(decimal.NewFromInt(100)))
}
