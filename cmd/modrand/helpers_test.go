package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"modrand/internal/domain"
	"modrand/internal/storage/config"

	"github.com/stretchr/testify/require"
)

// setupCLI points the global flags at a temp config declaring mods and
// returns the temp root.
func setupCLI(t *testing.T, mods ...domain.Mod) string {
	t.Helper()
	dir := t.TempDir()
	inventory := filepath.Join(dir, "mods.yaml")
	require.NoError(t, config.SaveInventory(inventory, mods))

	cfgDir := filepath.Join(dir, "config")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	cfg := fmt.Sprintf("extensions_dir: %s\ninventory_file: %s\ndebounce: 10ms\nlock_release: 5ms\n",
		filepath.Join(dir, "extensions"), inventory)
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0644))

	configDir = cfgDir
	dataDir = filepath.Join(dir, "data")
	t.Setenv("NO_COLOR", "1")
	t.Cleanup(func() {
		configDir = ""
		dataDir = ""
	})
	return dir
}

func resetFlags() {
	configFile = ""
	verbose = false
	jsonOutput = false
	noColor = false
	listProfile = ""
	modProfile = ""
	profileYes = false
	profileNoSwitch = false
	metricsAddr = ""
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, out)
	return out
}

var (
	alpha = domain.Mod{ID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Name: "Alpha"}
	beta  = domain.Mod{ID: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Name: "Beta"}
	gamma = domain.Mod{ID: "cccccccccccccccccccccccccccccccc", Name: "Gamma"}
)
