package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhaus/commission-engine/hierarchy"
	"github.com/clubhaus/commission-engine/hierarchy/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func pct(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func nodeID(id hierarchy.NodeID) *hierarchy.NodeID { return &id }

// addPromoter inserts a promoter with the given parent and returns its id.
func addPromoter(t *testing.T, s hierarchy.Store, handle string, percentage float64, parent *hierarchy.NodeID) hierarchy.NodeID {
	t.Helper()
	p := &hierarchy.Promoter{
		Handle:     handle,
		ParentID:   parent,
		Percentage: pct(percentage),
		Active:     true,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreatePromoter(context.Background(), p))
	return p.ID
}

// forceParent rewires a promoter's parent, bypassing roster validation, to
// simulate malformed rows that predate the checks.
func forceParent(t *testing.T, s hierarchy.Store, id hierarchy.NodeID, parent *hierarchy.NodeID) {
	t.Helper()
	ctx := context.Background()
	p, err := s.GetPromoter(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	p.ParentID = parent
	require.NoError(t, s.UpdatePromoter(ctx, p))
}

// =============================================================================
// ASCEND
// =============================================================================

func TestWalker_Ascend_Chain(t *testing.T) {
	// GIVEN: admin -> a -> b -> c
	// WHEN: Ascending from c
	// THEN: The chain is c, b, a with no admin entry
	ctx := context.Background()
	mem := store.NewMemory()

	admin := &hierarchy.Admin{Handle: "boss"}
	require.NoError(t, mem.CreateAdmin(ctx, admin))

	a := addPromoter(t, mem, "a", 20, nodeID(admin.ID))
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	c := addPromoter(t, mem, "c", 5, nodeID(b))

	chain, err := hierarchy.NewWalker(mem).Ascend(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []hierarchy.NodeID{c, b, a}, chain)
}

func TestWalker_Ascend_MissingStart(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Ascending from an unknown id
	// THEN: The chain is empty and there is no error
	chain, err := hierarchy.NewWalker(store.NewMemory()).Ascend(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestWalker_Ascend_SelfParent(t *testing.T) {
	// GIVEN: A promoter whose parent is itself
	// WHEN: Ascending from it
	// THEN: The chain contains it once and terminates
	ctx := context.Background()
	mem := store.NewMemory()
	a := addPromoter(t, mem, "a", 10, nil)
	forceParent(t, mem, a, nodeID(a))

	chain, err := hierarchy.NewWalker(mem).Ascend(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []hierarchy.NodeID{a}, chain)
}

func TestWalker_Ascend_Cycle(t *testing.T) {
	// GIVEN: a and b are each other's parents
	// WHEN: Ascending from a
	// THEN: Each node appears exactly once, then the walk truncates
	ctx := context.Background()
	mem := store.NewMemory()
	a := addPromoter(t, mem, "a", 10, nil)
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	forceParent(t, mem, a, nodeID(b))

	chain, err := hierarchy.NewWalker(mem).Ascend(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []hierarchy.NodeID{a, b}, chain)
}

func TestWalker_Ascend_DepthBound(t *testing.T) {
	// GIVEN: A chain deeper than MaxDepth
	// WHEN: Ascending from the bottom
	// THEN: The walk stops at MaxDepth nodes
	ctx := context.Background()
	mem := store.NewMemory()

	parent := addPromoter(t, mem, "p0", 10, nil)
	bottom := parent
	for i := 1; i < hierarchy.MaxDepth+3; i++ {
		bottom = addPromoter(t, mem, "p"+string(rune('a'+i)), 10, nodeID(bottom))
	}

	chain, err := hierarchy.NewWalker(mem).Ascend(ctx, bottom)
	require.NoError(t, err)
	assert.Len(t, chain, hierarchy.MaxDepth)
}

// =============================================================================
// DESCEND
// =============================================================================

func TestWalker_Descend_Subtree(t *testing.T) {
	// GIVEN: a with children b, c; b with child d; unrelated promoter e
	// WHEN: Descending from a
	// THEN: b, c, d are collected, a and e are not
	ctx := context.Background()
	mem := store.NewMemory()
	a := addPromoter(t, mem, "a", 10, nil)
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	c := addPromoter(t, mem, "c", 10, nodeID(a))
	d := addPromoter(t, mem, "d", 10, nodeID(b))
	addPromoter(t, mem, "e", 10, nil)

	subtree, err := hierarchy.NewWalker(mem).Descend(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []hierarchy.NodeID{b, c, d}, subtree)
}

func TestWalker_Descend_CycleTerminates(t *testing.T) {
	// GIVEN: a -> b -> a (b's child list contains a through malformed data)
	// WHEN: Descending from a
	// THEN: Each node is collected at most once
	ctx := context.Background()
	mem := store.NewMemory()
	a := addPromoter(t, mem, "a", 10, nil)
	b := addPromoter(t, mem, "b", 10, nodeID(a))
	forceParent(t, mem, a, nodeID(b))

	subtree, err := hierarchy.NewWalker(mem).Descend(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []hierarchy.NodeID{b}, subtree)
}

// =============================================================================
// SCOPE
// =============================================================================

func TestWalker_InScope(t *testing.T) {
	// GIVEN: Two admins, each owning one subtree
	// WHEN: Checking scope for a nested promoter
	// THEN: Only the owning admin is in scope
	ctx := context.Background()
	mem := store.NewMemory()

	admin1 := &hierarchy.Admin{Handle: "one"}
	require.NoError(t, mem.CreateAdmin(ctx, admin1))
	admin2 := &hierarchy.Admin{Handle: "two"}
	require.NoError(t, mem.CreateAdmin(ctx, admin2))

	a := addPromoter(t, mem, "a", 10, nodeID(admin1.ID))
	b := addPromoter(t, mem, "b", 5, nodeID(a))

	w := hierarchy.NewWalker(mem)

	ok, err := w.InScope(ctx, admin1.ID, b)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.InScope(ctx, admin2.ID, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalker_InScope_NilParentIsShared(t *testing.T) {
	// GIVEN: A promoter with no parent at all
	// WHEN: Any admin checks scope
	// THEN: The promoter is in scope
	ctx := context.Background()
	mem := store.NewMemory()
	admin := &hierarchy.Admin{Handle: "one"}
	require.NoError(t, mem.CreateAdmin(ctx, admin))
	p := addPromoter(t, mem, "floating", 10, nil)

	ok, err := hierarchy.NewWalker(mem).InScope(ctx, admin.ID, p)
	require.NoError(t, err)
	assert.True(t, ok)
}
