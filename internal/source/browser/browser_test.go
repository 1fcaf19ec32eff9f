package browser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"modrand/internal/domain"
	"modrand/internal/source/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeURL = "https://api.gx.me/store/mods/update"

func writeManifest(t *testing.T, root, id, version, content string) string {
	t.Helper()
	dir := filepath.Join(root, id, version)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0644))
	return dir
}

func TestDetect(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "bbb", "1.0.0_0", `{"name":"Neon Nights","update_url":"`+storeURL+`"}`)
	writeManifest(t, root, "aaa", "2.0", `{"name":"Rainy Day","update_url":"`+storeURL+`"}`)
	writeManifest(t, root, "ccc", "1.0", `{"name":"uBlock","update_url":"https://clients2.google.com/service/update2/crx"}`)

	mods, err := browser.New(root, storeURL).Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Mod{
		{ID: "aaa", Name: "Rainy Day"},
		{ID: "bbb", Name: "Neon Nights"},
	}, mods)
}

func TestDetect_NoFilter(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "ccc", "1.0", `{"name":"uBlock"}`)

	mods, err := browser.New(root, "").Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Mod{{ID: "ccc", Name: "uBlock"}}, mods)
}

func TestDetect_PicksHighestVersion(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "aaa", "1.9.0_0", `{"name":"Old Name","update_url":"`+storeURL+`"}`)
	writeManifest(t, root, "aaa", "1.10.0_0", `{"name":"New Name","update_url":"`+storeURL+`"}`)

	mods, err := browser.New(root, storeURL).Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "New Name", mods[0].Name)
}

func TestDetect_LocalizedName(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, "aaa", "1.0",
		`{"name":"__MSG_appName__","default_locale":"en","update_url":"`+storeURL+`"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "_locales", "en"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_locales", "en", "messages.json"),
		[]byte(`{"APPNAME":{"message":"Cyber Dawn"}}`), 0644))

	mods, err := browser.New(root, storeURL).Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "Cyber Dawn", mods[0].Name)
}

func TestDetect_SkipsBrokenManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "aaa", "1.0", `{not json`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	mods, err := browser.New(root, storeURL).Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestDetect_MissingDir(t *testing.T) {
	mods, err := browser.New(filepath.Join(t.TempDir(), "none"), storeURL).Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.10", "1.9", 1},
		{"1.0.0_0", "1.0.0_1", -1},
		{"2", "1.99", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, browser.CompareVersions(tt.a, tt.b))
		})
	}
}
