package main

import (
	"encoding/json"
	"testing"

	"modrand/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsGetCmd_Defaults(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "settings", "get", "--json")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "minutes", got[domain.KeyTimeUnit])
	assert.Contains(t, got, domain.KeyRandomizeAll)
	assert.Contains(t, got, domain.KeyRandomizeTime)
}

func TestSettingsSetCmd(t *testing.T) {
	setupCLI(t, alpha, beta)

	mustRun(t, "settings", "set", domain.KeyTimeUnit, "hours")
	mustRun(t, "settings", "set", domain.KeyRandomizeTime, "1.5")

	out := mustRun(t, "settings", "get", domain.KeyRandomizeTime, "--json")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{domain.KeyRandomizeTime: 90.0}, got)

	out = mustRun(t, "settings", "get", domain.KeyRandomizeTime)
	assert.Contains(t, out, "1.5")
}

func TestSettingsSetCmd_RandomizeAllChecksEveryMod(t *testing.T) {
	setupCLI(t, alpha, beta)

	mustRun(t, "settings", "set", domain.KeyRandomizeAll, "true")

	got := listRows(t)
	assert.True(t, got.RandomizeAll)
	assert.Equal(t, []string{"Alpha", "Beta"}, checkedNames(got.Mods))
}

func TestSettingsSetCmd_Invalid(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "settings", "set", domain.KeyRandomizeAll, "maybe")
	assert.Error(t, err)

	_, err = runCLI(t, "settings", "set", domain.KeyTimeUnit, "weeks")
	assert.Error(t, err)

	_, err = runCLI(t, "settings", "set", "colour", "blue")
	assert.Error(t, err)

	_, err = runCLI(t, "settings", "get", "colour")
	assert.Error(t, err)
}
