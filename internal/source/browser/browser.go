// Package browser detects store mods installed in a Chromium-style
// extensions directory.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"modrand/internal/domain"
)

// Source scans <dir>/<id>/<version>/manifest.json
type Source struct {
	dir       string
	updateURL string
}

// New returns a Source reading dir and keeping only manifests whose
// update_url equals updateURL. An empty updateURL keeps every extension.
func New(dir, updateURL string) *Source {
	return &Source{dir: dir, updateURL: updateURL}
}

// ID returns the source identifier
func (s *Source) ID() string { return "browser" }

// Name returns the display name
func (s *Source) Name() string { return "Browser extensions" }

// FindExtensionDirs returns candidate extension directories in search order.
func FindExtensionDirs() []string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".config", "opera-gx", "Extensions"),
		filepath.Join(home, ".config", "opera", "Extensions"),
		filepath.Join(home, "Library", "Application Support", "com.operasoftware.OperaGX", "Extensions"),
	}
	if p := os.Getenv("MODRAND_EXTENSIONS_DIR"); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	var out []string
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out
}

type manifest struct {
	Name          string `json:"name"`
	UpdateURL     string `json:"update_url"`
	DefaultLocale string `json:"default_locale"`
}

// Detect lists installed mods sorted by id. A missing directory is an empty inventory.
func (s *Source) Detect(ctx context.Context) ([]domain.Mod, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading extensions dir: %w", err)
	}

	var mods []domain.Mod
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == "Temp" {
			continue
		}

		mod, ok, err := s.readExtension(filepath.Join(s.dir, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			mods = append(mods, mod)
		}
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods, nil
}

func (s *Source) readExtension(extDir, id string) (domain.Mod, bool, error) {
	version, err := latestVersion(extDir)
	if err != nil || version == "" {
		return domain.Mod{}, false, err
	}

	versionDir := filepath.Join(extDir, version)
	data, err := os.ReadFile(filepath.Join(versionDir, "manifest.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Mod{}, false, nil
		}
		return domain.Mod{}, false, fmt.Errorf("reading manifest for %s: %w", id, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		// Half-written installs are skipped rather than failing the inventory.
		return domain.Mod{}, false, nil
	}
	if s.updateURL != "" && m.UpdateURL != s.updateURL {
		return domain.Mod{}, false, nil
	}

	name := localize(versionDir, m.DefaultLocale, m.Name)
	if name == "" {
		name = id
	}
	return domain.Mod{ID: id, Name: name}, true, nil
}

// latestVersion picks the highest version directory of an extension.
func latestVersion(extDir string) (string, error) {
	entries, err := os.ReadDir(extDir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", extDir, err)
	}
	var best string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if best == "" || compareVersions(e.Name(), best) > 0 {
			best = e.Name()
		}
	}
	return best, nil
}

// compareVersions compares dotted versions such as "1.10.2_0" numerically.
func compareVersions(a, b string) int {
	split := func(r rune) bool { return r == '.' || r == '_' }
	pa, pb := strings.FieldsFunc(a, split), strings.FieldsFunc(b, split)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

// localize resolves __MSG_key__ names through _locales/<locale>/messages.json.
// Message keys are matched case-insensitively.
func localize(versionDir, locale, name string) string {
	if !strings.HasPrefix(name, "__MSG_") || !strings.HasSuffix(name, "__") || locale == "" {
		return name
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, "__MSG_"), "__")

	data, err := os.ReadFile(filepath.Join(versionDir, "_locales", locale, "messages.json"))
	if err != nil {
		return name
	}
	var messages map[string]struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return name
	}
	for k, v := range messages {
		if strings.EqualFold(k, key) && v.Message != "" {
			return v.Message
		}
	}
	return name
}
