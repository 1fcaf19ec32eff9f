package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"modrand/internal/storage/db"
	"modrand/internal/storage/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesDatabase(t *testing.T) {
	database, err := db.New(":memory:")
	require.NoError(t, err)
	defer database.Close()

	assert.NotNil(t, database)
}

func TestNew_RunsMigrations(t *testing.T) {
	database, err := db.New(":memory:")
	require.NoError(t, err)
	defer database.Close()

	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count)
	assert.NoError(t, err)

	var version int
	err = database.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "modrand.db")

	database, err := db.New(path)
	require.NoError(t, err)
	require.NoError(t, database.Set(ctx, map[string]any{"activeProfile": "Racing"}))
	require.NoError(t, database.Close())

	reopened, err := db.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	vals, err := kv.Read(ctx, reopened, "activeProfile")
	require.NoError(t, err)
	active, err := vals.String("activeProfile")
	require.NoError(t, err)
	assert.Equal(t, "Racing", active)
}

func TestSet_UpsertsAllKeys(t *testing.T) {
	ctx := context.Background()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.Set(ctx, map[string]any{
		"profiles":      map[string][]string{"Default": {"a", "b"}},
		"profilesOrder": map[string][]string{"Default": {"b", "a"}},
	}))
	require.NoError(t, database.Set(ctx, map[string]any{
		"profiles": map[string][]string{"Default": {"a"}},
	}))

	vals, err := database.Get(ctx, "profiles", "profilesOrder", "missing")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Default":["a"]}`, string(vals["profiles"]))
	assert.JSONEq(t, `{"Default":["b","a"]}`, string(vals["profilesOrder"]))
	_, ok := vals["missing"]
	assert.False(t, ok)
}

func TestSet_PublishesChanges(t *testing.T) {
	ctx := context.Background()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	defer database.Close()

	var batches [][]kv.Change
	database.Subscribe(func(changes []kv.Change) {
		batches = append(batches, changes)
	})

	require.NoError(t, database.Set(ctx, map[string]any{"currentMod": "Neon"}))
	require.NoError(t, database.Set(ctx, map[string]any{"currentMod": "Neon"}))
	require.NoError(t, database.Set(ctx, map[string]any{"currentMod": "Rain"}))

	require.Len(t, batches, 2)
	assert.Nil(t, batches[0][0].OldValue)
	assert.JSONEq(t, `"Neon"`, string(batches[1][0].OldValue))
	assert.JSONEq(t, `"Rain"`, string(batches[1][0].NewValue))
}

func TestGet_NoKeys(t *testing.T) {
	database, err := db.New(":memory:")
	require.NoError(t, err)
	defer database.Close()

	vals, err := database.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vals)
}
