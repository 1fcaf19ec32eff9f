package static_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"modrand/internal/domain"
	"modrand/internal/source/static"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mods.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mods:\n  - id: x1\n    name: Foo\n"), 0644))

	src := static.New(path)
	assert.Equal(t, "static", src.ID())

	mods, err := src.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Mod{{ID: "x1", Name: "Foo"}}, mods)
}

func TestDetect_PicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mods.yaml")
	src := static.New(path)

	mods, err := src.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mods)

	require.NoError(t, os.WriteFile(path, []byte("mods:\n  - id: x2\n    name: Bar\n"), 0644))
	mods, err = src.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Mod{{ID: "x2", Name: "Bar"}}, mods)
}

func TestDetect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := static.New("unused").Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
