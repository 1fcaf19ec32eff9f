package core_test

import (
	"context"
	"testing"

	"modrand/internal/core"
	"modrand/internal/domain"
	"modrand/internal/storage/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_BackfillsOrderOnce(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles: domain.Profiles{"Default": {"b", "a", "b"}},
	})
	r := core.NewReconciler(store, nil)
	detected := []domain.Mod{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}, {ID: "c", Name: "Gamma"}}

	_, err := r.Reconcile(ctx, "Default", detected)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileOrder{"Default": {"b", "a"}}, readOrder(t, store))

	writes := store.Writes()
	_, err = r.Reconcile(ctx, "Default", detected)
	require.NoError(t, err)
	assert.Equal(t, writes, store.Writes(), "merging membership and detected ids must not persist")
	assert.Equal(t, domain.ProfileOrder{"Default": {"b", "a"}}, readOrder(t, store))
}

func TestReconcile_DisplayOrder(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles:            domain.Profiles{"Default": {"m10", "gone"}},
		domain.KeyProfilesOrder:       domain.ProfileOrder{"Default": {"old", "m10"}},
		domain.KeyRecentlyUninstalled: map[string]domain.UninstalledMod{"old": {Name: "aardvark"}},
	})
	r := core.NewReconciler(store, nil)
	detected := []domain.Mod{
		{ID: "m2", Name: "Mod 2"},
		{ID: "m10", Name: "mod 10"},
		{ID: "z", Name: "Zebra"},
	}

	view, err := r.Reconcile(ctx, "Default", detected)
	require.NoError(t, err)

	// order ∪ membership ∪ detected, each once
	assert.ElementsMatch(t, []string{"old", "m10", "gone", "m2", "z"}, rowIDs(view))
	assert.Equal(t, []string{"old", "m2", "m10", "gone", "z"}, rowIDs(view))

	byID := map[string]core.Row{}
	for _, row := range view.Rows {
		byID[row.ID] = row
	}
	assert.Equal(t, "aardvark", byID["old"].Name)
	assert.False(t, byID["old"].Detected)
	assert.Equal(t, domain.UnknownModName, byID["gone"].Name)
	assert.True(t, byID["gone"].Fallback)
	assert.True(t, byID["gone"].Checked)
	assert.True(t, byID["m10"].Checked)
	assert.False(t, byID["m2"].Checked)
	assert.Equal(t, []string{"m10", "gone"}, view.CheckedIDs())
}

func TestReconcile_TiesKeepWorkingOrder(t *testing.T) {
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {"y", "x"}},
	})
	detected := []domain.Mod{{ID: "x", Name: "Same"}, {ID: "y", Name: "same"}}

	view, err := core.NewReconciler(store, nil).Reconcile(context.Background(), "Default", detected)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, rowIDs(view))
}

func TestReconcile_EmptyInventory(t *testing.T) {
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {"b"}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {"a", "b"}},
	})

	view, err := core.NewReconciler(store, nil).Reconcile(context.Background(), "Default", nil)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	for _, row := range view.Rows {
		assert.Equal(t, domain.UnknownModName, row.Name)
		assert.False(t, row.Detected)
	}
	assert.Equal(t, []string{"b"}, view.CheckedIDs())
}

func TestReconcile_EmptyProfile(t *testing.T) {
	store := kv.NewMemory()
	detected := []domain.Mod{{ID: "b", Name: "Beta"}, {ID: "a", Name: "Alpha"}}

	view, err := core.NewReconciler(store, nil).Reconcile(context.Background(), "Fresh", detected)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", view.Profile)
	assert.Equal(t, []string{"a", "b"}, rowIDs(view))
	assert.Empty(t, view.CheckedIDs())
	assert.Equal(t, domain.ProfileOrder{"Fresh": {}}, readOrder(t, store))
}

func TestReconcile_RandomizeAllChecksEverything(t *testing.T) {
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles:     domain.Profiles{"Default": {}},
		domain.KeyRandomizeAll: true,
		domain.KeyCurrentMod:   "Alpha",
	})
	detected := []domain.Mod{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}}

	view, err := core.NewReconciler(store, nil).Reconcile(context.Background(), "Default", detected)
	require.NoError(t, err)
	assert.True(t, view.RandomizeAll)
	assert.Equal(t, []string{"a", "b"}, view.CheckedIDs())
	assert.Equal(t, "Alpha", view.CurrentMod)
}

func TestEnsureOrders(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	seed(t, store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {"a", "c"}, "Work": {"b"}, "Empty": {}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {"c", "x"}},
	})
	r := core.NewReconciler(store, nil)

	order, err := r.EnsureOrders(ctx)
	require.NoError(t, err)
	want := domain.ProfileOrder{"Default": {"c", "x", "a"}, "Work": {"b"}, "Empty": {}}
	assert.Equal(t, want, order)
	assert.Equal(t, want, readOrder(t, store))

	writes := store.Writes()
	_, err = r.EnsureOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, writes, store.Writes())
}
