package core

import (
	"context"
	"fmt"
	"log/slog"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// GCResult reports what a collection removed.
type GCResult struct {
	PrunedIDs int  `json:"prunedIds"`
	Wrote     bool `json:"wrote"`
}

// GarbageCollector drops ids the inventory no longer reports from
// membership, order and the known-ids cache.
type GarbageCollector struct {
	store   kv.Store
	log     *slog.Logger
	metrics *Metrics
}

// NewGarbageCollector creates a collector. A nil logger uses slog.Default().
func NewGarbageCollector(store kv.Store, logger *slog.Logger, metrics *Metrics) *GarbageCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &GarbageCollector{store: store, log: logger, metrics: metrics}
}

// Collect prunes every stored list to detectedIDs. It writes once, and only
// if some list shrank, so running it twice against the same inventory
// performs no second write.
func (g *GarbageCollector) Collect(ctx context.Context, detectedIDs []string) (GCResult, error) {
	vals, err := kv.Read(ctx, g.store, domain.KeyProfiles, domain.KeyProfilesOrder, domain.KeyKnownDetectedIDs)
	if err != nil {
		return GCResult{}, err
	}
	profiles := domain.Profiles{}
	order := domain.ProfileOrder{}
	var known []string
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return GCResult{}, err
	}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return GCResult{}, err
	}
	if _, err := vals.Decode(domain.KeyKnownDetectedIDs, &known); err != nil {
		return GCResult{}, err
	}

	present := make(map[string]bool, len(detectedIDs))
	for _, id := range detectedIDs {
		present[id] = true
	}

	var res GCResult
	updates := map[string]any{}

	pruneAll := func(lists map[string][]string) bool {
		shrank := false
		for name, ids := range lists {
			kept, n := prune(ids, present)
			if n > 0 {
				lists[name] = kept
				res.PrunedIDs += n
				shrank = true
			}
		}
		return shrank
	}
	if pruneAll(profiles) {
		updates[domain.KeyProfiles] = profiles
	}
	if pruneAll(order) {
		updates[domain.KeyProfilesOrder] = order
	}
	if kept, n := prune(known, present); n > 0 {
		updates[domain.KeyKnownDetectedIDs] = kept
		res.PrunedIDs += n
	}

	if len(updates) == 0 {
		return res, nil
	}
	if err := g.store.Set(ctx, updates); err != nil {
		return GCResult{}, fmt.Errorf("saving pruned ids: %w", err)
	}
	res.Wrote = true
	g.metrics.pruned(res.PrunedIDs)
	g.log.Debug("pruned undetected mod ids", "count", res.PrunedIDs)
	return res, nil
}

func prune(ids []string, present map[string]bool) ([]string, int) {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if present[id] {
			kept = append(kept, id)
		}
	}
	return kept, len(ids) - len(kept)
}
