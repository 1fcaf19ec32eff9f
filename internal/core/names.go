package core

import (
	"sync"

	"modrand/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ResolveName returns the display name of id: the detected name, else the
// name remembered when the mod was uninstalled, else domain.UnknownModName.
func ResolveName(id string, detected map[string]string, uninstalled map[string]domain.UninstalledMod) string {
	if name := detected[id]; name != "" {
		return name
	}
	if u, ok := uninstalled[id]; ok && u.Name != "" {
		return u.Name
	}
	return domain.UnknownModName
}

// Collator compares display names case-insensitively with numeric runs
// compared by value, so "Mod 2" sorts before "Mod 10".
type Collator struct {
	mu sync.Mutex // collate.Collator keeps scratch buffers
	c  *collate.Collator
}

// NewCollator builds a collator for a BCP 47 locale. Unparseable locales
// fall back to the root collation.
func NewCollator(locale string) *Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Collator{c: collate.New(tag, collate.IgnoreCase, collate.Numeric)}
}

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.CompareString(a, b)
}
