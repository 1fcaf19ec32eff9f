package kv_test

import (
	"context"
	"encoding/json"
	"testing"

	"modrand/internal/storage/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	err := store.Set(ctx, map[string]any{
		"profiles":      map[string][]string{"Default": {"a"}},
		"activeProfile": "Default",
	})
	require.NoError(t, err)

	vals, err := kv.Read(ctx, store, "profiles", "activeProfile", "missing")
	require.NoError(t, err)

	var profiles map[string][]string
	found, err := vals.Decode("profiles", &profiles)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, profiles["Default"])

	active, err := vals.String("activeProfile")
	require.NoError(t, err)
	assert.Equal(t, "Default", active)

	assert.False(t, vals.Has("missing"))
	assert.Equal(t, 1, store.Writes())
}

func TestMemory_Decode_NullIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]any{"k": nil}))

	vals, err := kv.Read(ctx, store, "k")
	require.NoError(t, err)

	dst := []string{"untouched"}
	found, err := vals.Decode("k", &dst)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"untouched"}, dst)

	b, err := vals.Bool("k", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestMemory_NotifiesOnlyChangedKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]any{"a": 1, "b": 2}))

	var got []kv.Change
	unsubscribe := store.Subscribe(func(changes []kv.Change) {
		got = append(got, changes...)
	})

	require.NoError(t, store.Set(ctx, map[string]any{"a": 1, "b": 3}))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Key)
	assert.JSONEq(t, "2", string(got[0].OldValue))
	assert.JSONEq(t, "3", string(got[0].NewValue))

	unsubscribe()
	require.NoError(t, store.Set(ctx, map[string]any{"b": 4}))
	assert.Len(t, got, 1)
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]any{"k": json.RawMessage(`"v"`)}))

	vals, err := store.Get(ctx, "k")
	require.NoError(t, err)
	vals["k"][1] = 'X'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(again["k"]))
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := kv.NewMemory()
	assert.Error(t, store.Set(ctx, map[string]any{"k": 1}))
	_, err := store.Get(ctx, "k")
	assert.Error(t, err)
}
