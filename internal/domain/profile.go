package domain

import (
	"sort"
	"strings"
)

// DefaultProfile always exists.
const DefaultProfile = "Default"

// MaxProfileNameLength bounds profile names accepted from users.
const MaxProfileNameLength = 50

// Profiles maps a profile name to its enabled mod ids (unordered membership).
type Profiles map[string][]string

// ProfileOrder maps a profile name to the ordered superset of ids ever assigned to it.
type ProfileOrder map[string][]string

// Names returns profile names sorted case-insensitively.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sortFold(names)
	return names
}

// Lookup finds a profile name case-insensitively.
func (p Profiles) Lookup(name string) (string, bool) {
	if _, ok := p[name]; ok {
		return name, true
	}
	for existing := range p {
		if strings.EqualFold(existing, name) {
			return existing, true
		}
	}
	return "", false
}

// ExportedMod is one entry of an exported profile
type ExportedMod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExportDocument is the JSON file format shared by import and export
type ExportDocument struct {
	Version    int                      `json:"version"`
	ExportDate string                   `json:"exportDate"`
	Profiles   map[string][]ExportedMod `json:"profiles"`
}

// ImportResult summarizes an import. Batch matches the id logged for the
// import.
type ImportResult struct {
	Batch       string              `json:"batch"`
	Imported    []string            `json:"imported"`
	Skipped     []string            `json:"skipped"`
	MissingMods map[string][]string `json:"missingMods"`
}

// ValidateProfileName trims and checks a user supplied profile name.
func ValidateProfileName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &ValidationError{Field: "profile name", Reason: "cannot be empty"}
	}
	if len([]rune(name)) > MaxProfileNameLength {
		return "", &ValidationError{Field: "profile name", Reason: "is too long"}
	}
	return name, nil
}

func sortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
}
