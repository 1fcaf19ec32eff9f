package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"modrand/internal/domain"
)

// ErrNoSources is returned by Detect when nothing is registered. An empty
// registry is a configuration problem, not an empty inventory, and callers
// must not garbage-collect against it.
var ErrNoSources = errors.New("no inventory sources configured")

// Registry manages inventory sources in registration order
type Registry struct {
	mu      sync.RWMutex
	sources []InventorySource
}

// NewRegistry creates a new source registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a source, replacing any source with the same ID in place
func (r *Registry) Register(src InventorySource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sources {
		if s.ID() == src.ID() {
			r.sources[i] = src
			return
		}
	}
	r.sources = append(r.sources, src)
}

// List returns all registered sources in registration order
func (r *Registry) List() []InventorySource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]InventorySource(nil), r.sources...)
}

// Detect concatenates the inventories of every source. When two sources
// report the same id the first one wins.
func (r *Registry) Detect(ctx context.Context) ([]domain.Mod, error) {
	sources := r.List()
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	var mods []domain.Mod
	seen := make(map[string]bool)
	for _, src := range sources {
		found, err := src.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("detecting mods from %s: %w", src.ID(), err)
		}
		for _, m := range found {
			if m.ID == "" || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			mods = append(mods, m)
		}
	}
	return mods, nil
}
