package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// SessionOpts wires a Session.
type SessionOpts struct {
	Store      kv.Store
	Members    Collaborator
	Reconciler *Reconciler
	Collector  *GarbageCollector
	Saver      *SaveCoordinator
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Session is one UI's view of the profiles. It owns the current profile,
// set on Open and changed only by switching or by the active profile
// changing in the store.
type Session struct {
	store      kv.Store
	members    Collaborator
	reconciler *Reconciler
	collector  *GarbageCollector
	saver      *SaveCoordinator
	log        *slog.Logger
	metrics    *Metrics

	mu      sync.Mutex
	current string
	names   []string
	view    View
}

// NewSession creates a session; call Open before anything else.
func NewSession(opts SessionOpts) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:      opts.Store,
		members:    opts.Members,
		reconciler: opts.Reconciler,
		collector:  opts.Collector,
		saver:      opts.Saver,
		log:        logger,
		metrics:    opts.Metrics,
	}
}

// Open prunes undetected ids, loads the profile list and renders the
// current profile.
func (s *Session) Open(ctx context.Context) (View, error) {
	ext, err := s.members.GetExtensions(ctx)
	if err != nil {
		return View{}, fmt.Errorf("getting extensions: %w", err)
	}
	if _, err := s.collector.Collect(ctx, domain.ModIDs(ext.DetectedModList)); err != nil {
		return View{}, fmt.Errorf("cleaning up undetected mods: %w", err)
	}
	if err := s.loadProfiles(ctx, false); err != nil {
		return View{}, err
	}
	view, _, err := s.Render(ctx)
	return view, err
}

// loadProfiles refreshes the profile names and keeps the current profile
// unless it no longer exists or followActive is set.
func (s *Session) loadProfiles(ctx context.Context, followActive bool) error {
	vals, err := kv.Read(ctx, s.store, domain.KeyProfiles, domain.KeyActiveProfile)
	if err != nil {
		return err
	}
	profiles := domain.Profiles{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return err
	}
	if len(profiles) == 0 {
		profiles[domain.DefaultProfile] = []string{}
	}
	active, err := vals.String(domain.KeyActiveProfile)
	if err != nil {
		return err
	}
	names := profiles.Names()
	if _, ok := profiles[active]; !ok {
		active = names[0]
	}

	s.mu.Lock()
	s.names = names
	if _, ok := profiles[s.current]; followActive || !ok {
		s.current = active
	}
	s.mu.Unlock()

	if _, err := s.reconciler.EnsureOrders(ctx); err != nil {
		return fmt.Errorf("ensuring profile order: %w", err)
	}
	return nil
}

// Render rebuilds the view of the current profile from the store and a
// fresh inventory. While a save holds the render lock it returns the last
// view and false without touching the store.
func (s *Session) Render(ctx context.Context) (View, bool, error) {
	if !s.saver.RenderAllowed() {
		s.metrics.renderSuppressed()
		return s.View(), false, nil
	}

	ext, err := s.members.GetExtensions(ctx)
	if err != nil {
		return View{}, false, fmt.Errorf("getting extensions: %w", err)
	}

	profile := s.Current()
	view, err := s.reconciler.Reconcile(ctx, profile, ext.DetectedModList)
	if err != nil {
		return View{}, false, fmt.Errorf("reconciling %s: %w", profile, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != profile {
		// switched while rendering; the newer render wins
		return s.view.Clone(), false, nil
	}
	s.view = view
	return view.Clone(), true, nil
}

// HandleChanges reacts to a store change batch by re-rendering. A change of
// the active profile, or of the set of profile names, reloads the profile
// list first. Changes are triggers only and never applied as diffs.
func (s *Session) HandleChanges(ctx context.Context, changes []kv.Change) (View, bool, error) {
	keys := kv.Keys(changes)
	relevant := false
	for _, k := range []string{
		domain.KeyProfiles, domain.KeyActiveProfile, domain.KeyCurrentMod,
		domain.KeyProfilesOrder, domain.KeyRandomizeAll, domain.KeyRecentlyUninstalled,
	} {
		if keys[k] {
			relevant = true
			break
		}
	}
	if !relevant {
		return s.View(), false, nil
	}

	if keys[domain.KeyActiveProfile] || profileNamesChanged(changes) {
		if err := s.loadProfiles(ctx, keys[domain.KeyActiveProfile]); err != nil {
			return View{}, false, err
		}
	}
	return s.Render(ctx)
}

// profileNamesChanged compares the names before the first and after the
// last profiles change of a batch.
func profileNamesChanged(changes []kv.Change) bool {
	var first, last *kv.Change
	for i := range changes {
		if changes[i].Key != domain.KeyProfiles {
			continue
		}
		if first == nil {
			first = &changes[i]
		}
		last = &changes[i]
	}
	if first == nil {
		return false
	}
	return !slices.Equal(objectKeys(first.OldValue), objectKeys(last.NewValue))
}

func objectKeys(raw json.RawMessage) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Current returns the profile being shown.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Profiles returns the profile names as last loaded.
func (s *Session) Profiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names)
}

// View returns a copy of the last rendered view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// Saver exposes the session's save coordinator.
func (s *Session) Saver() *SaveCoordinator {
	return s.saver
}

// setCurrent changes the shown profile, reloads the profile list and renders.
func (s *Session) setCurrent(ctx context.Context, name string) error {
	s.mu.Lock()
	s.current = name
	s.mu.Unlock()
	return s.reload(ctx, false)
}

// Show renders another profile without changing the active one. It is
// refused while a save holds the render lock.
func (s *Session) Show(ctx context.Context, name string) (View, error) {
	if !s.saver.RenderAllowed() {
		return View{}, domain.ErrRenderSuppressed
	}

	vals, err := kv.Read(ctx, s.store, domain.KeyProfiles)
	if err != nil {
		return View{}, err
	}
	profiles := domain.Profiles{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return View{}, err
	}
	actual, ok := profiles.Lookup(name)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
	}

	if err := s.setCurrent(ctx, actual); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

func (s *Session) reload(ctx context.Context, followActive bool) error {
	if err := s.loadProfiles(ctx, followActive); err != nil {
		return err
	}
	_, _, err := s.Render(ctx)
	return err
}

// Toggle flips one mod of the current profile.
func (s *Session) Toggle(id string) (View, error) {
	return s.edit(false, func(v *View) error {
		i := v.Index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrModNotInList, id)
		}
		v.Rows[i].Checked = !v.Rows[i].Checked
		return nil
	})
}

// SetChecked sets one mod of the current profile.
func (s *Session) SetChecked(id string, checked bool) (View, error) {
	return s.edit(false, func(v *View) error {
		i := v.Index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrModNotInList, id)
		}
		v.Rows[i].Checked = checked
		return nil
	})
}

// ToggleAll unchecks everything when all mods are checked and checks
// everything otherwise.
func (s *Session) ToggleAll() (View, error) {
	return s.edit(true, func(v *View) error {
		all := true
		for _, r := range v.Rows {
			if !r.Checked {
				all = false
				break
			}
		}
		for i := range v.Rows {
			v.Rows[i].Checked = !all
		}
		return nil
	})
}

// ReverseAll inverts every checkbox.
func (s *Session) ReverseAll() (View, error) {
	return s.edit(true, func(v *View) error {
		for i := range v.Rows {
			v.Rows[i].Checked = !v.Rows[i].Checked
		}
		return nil
	})
}

// edit applies fn to the current view and hands the result to the save
// coordinator. The list is read-only while randomize-all is on.
func (s *Session) edit(bulk bool, fn func(*View) error) (View, error) {
	s.mu.Lock()
	if s.view.RandomizeAll {
		s.mu.Unlock()
		return View{}, domain.ErrRandomizeAll
	}
	if bulk && len(s.view.Rows) == 0 {
		v := s.view.Clone()
		s.mu.Unlock()
		return v, nil
	}
	next := s.view.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.view = next
	e := Edit{Profile: next.Profile, Checked: next.CheckedIDs()}
	s.mu.Unlock()

	if bulk {
		s.saver.Flush(e)
	} else {
		s.saver.RecordEdit(e)
	}
	return next.Clone(), nil
}

// Close flushes pending edits and waits for the last write.
func (s *Session) Close(ctx context.Context) error {
	return s.saver.Close(ctx)
}
