package core

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// Row is one mod line of a profile view.
type Row struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Checked  bool   `json:"checked"`
	Detected bool   `json:"detected"`
	// Fallback is set when no name is known at all.
	Fallback bool `json:"fallback,omitempty"`
}

// View is the display-ordered checklist for a profile.
type View struct {
	Profile      string `json:"profile"`
	Rows         []Row  `json:"rows"`
	RandomizeAll bool   `json:"randomizeAll"`
	CurrentMod   string `json:"currentMod,omitempty"`
}

// CheckedIDs lists checked ids in display order.
func (v View) CheckedIDs() []string {
	ids := []string{}
	for _, r := range v.Rows {
		if r.Checked {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Index returns the row position of id, or -1.
func (v View) Index(id string) int {
	for i, r := range v.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose rows can be mutated independently.
func (v View) Clone() View {
	v.Rows = slices.Clone(v.Rows)
	return v
}

// Reconciler derives display order from stored order, membership and the
// live inventory.
type Reconciler struct {
	store    kv.Store
	collator *Collator
}

// NewReconciler creates a reconciler. A nil collator uses the root locale.
func NewReconciler(store kv.Store, collator *Collator) *Reconciler {
	if collator == nil {
		collator = NewCollator("und")
	}
	return &Reconciler{store: store, collator: collator}
}

// Reconcile builds the view of profile. The stored order is written only
// when the profile has none yet; the merge of membership and detected ids
// is never persisted here.
func (r *Reconciler) Reconcile(ctx context.Context, profile string, detected []domain.Mod) (View, error) {
	vals, err := kv.Read(ctx, r.store,
		domain.KeyProfiles, domain.KeyProfilesOrder, domain.KeyRecentlyUninstalled,
		domain.KeyRandomizeAll, domain.KeyCurrentMod)
	if err != nil {
		return View{}, err
	}

	profiles := domain.Profiles{}
	order := domain.ProfileOrder{}
	uninstalled := map[string]domain.UninstalledMod{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return View{}, err
	}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return View{}, err
	}
	if _, err := vals.Decode(domain.KeyRecentlyUninstalled, &uninstalled); err != nil {
		return View{}, err
	}
	randomizeAll, err := vals.Bool(domain.KeyRandomizeAll, domain.BoolSettingDefaults[domain.KeyRandomizeAll])
	if err != nil {
		return View{}, err
	}
	currentMod, err := vals.String(domain.KeyCurrentMod)
	if err != nil {
		return View{}, err
	}

	members := profiles[profile]
	working, ok := order[profile]
	if !ok {
		working = appendMissing(nil, members)
		order[profile] = working
		if err := r.store.Set(ctx, map[string]any{domain.KeyProfilesOrder: order}); err != nil {
			return View{}, fmt.Errorf("initializing order for %s: %w", profile, err)
		}
	}

	working = appendMissing(working, members)
	working = appendMissing(working, domain.ModIDs(detected))

	names := domain.NameIndex(detected)
	checked := make(map[string]bool, len(members))
	for _, id := range members {
		checked[id] = true
	}

	rows := make([]Row, len(working))
	for i, id := range working {
		name := ResolveName(id, names, uninstalled)
		_, isDetected := names[id]
		rows[i] = Row{
			ID:       id,
			Name:     name,
			Checked:  randomizeAll || checked[id],
			Detected: isDetected,
			Fallback: name == domain.UnknownModName,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return r.collator.Compare(rows[i].Name, rows[j].Name) < 0
	})

	return View{Profile: profile, Rows: rows, RandomizeAll: randomizeAll, CurrentMod: currentMod}, nil
}

// EnsureOrders gives every profile an order entry containing at least its
// membership. It writes once, and only if something was added.
func (r *Reconciler) EnsureOrders(ctx context.Context) (domain.ProfileOrder, error) {
	vals, err := kv.Read(ctx, r.store, domain.KeyProfiles, domain.KeyProfilesOrder)
	if err != nil {
		return nil, err
	}
	profiles := domain.Profiles{}
	order := domain.ProfileOrder{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return nil, err
	}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return nil, err
	}

	changed := false
	for name, members := range profiles {
		existing, ok := order[name]
		merged := appendMissing(existing, members)
		if !ok || len(merged) != len(existing) {
			order[name] = merged
			changed = true
		}
	}

	if changed {
		if err := r.store.Set(ctx, map[string]any{domain.KeyProfilesOrder: order}); err != nil {
			return nil, fmt.Errorf("saving profile order: %w", err)
		}
	}
	return order, nil
}

// appendMissing returns a new slice holding seq followed by the ids of add
// not already present, with duplicates dropped. seq is not modified.
func appendMissing(seq, add []string) []string {
	seen := make(map[string]bool, len(seq)+len(add))
	out := seq[:0:0]
	for _, id := range seq {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range add {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
