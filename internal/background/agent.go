// Package background owns profile membership and the persisted inventory
// snapshot. It is the collaborator the core hands membership writes to.
package background

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// Status of a collaborator call
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is what every membership call answers with.
type Response struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the call succeeded.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Err converts a non-success response into a *domain.CollaboratorError.
func (r Response) Err(op string) error {
	if r.OK() {
		return nil
	}
	return &domain.CollaboratorError{Op: op, Message: r.Message}
}

func success() Response { return Response{Status: StatusSuccess} }

func failure(format string, args ...any) Response {
	return Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Extensions is the answer to GetExtensions.
type Extensions struct {
	DetectedModList []domain.Mod    `json:"detectedModList"`
	Profiles        domain.Profiles `json:"profiles"`
	ActiveProfile   string          `json:"activeProfile"`
}

// Inventory reports the mods currently installed.
type Inventory interface {
	Detect(ctx context.Context) ([]domain.Mod, error)
}

// Agent serializes membership calls over the store.
type Agent struct {
	store     kv.Store
	inventory Inventory
	log       *slog.Logger

	mu sync.Mutex
}

// New creates an agent. A nil logger uses slog.Default().
func New(store kv.Store, inventory Inventory, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{store: store, inventory: inventory, log: logger}
}

type state struct {
	profiles domain.Profiles
	active   string
	updates  map[string]any
}

// load reads profiles and activeProfile, creating the Default profile and a
// valid active profile when missing. Repairs are queued in updates.
func (a *Agent) load(ctx context.Context, extra ...string) (*state, kv.Values, error) {
	keys := append([]string{domain.KeyProfiles, domain.KeyActiveProfile}, extra...)
	vals, err := kv.Read(ctx, a.store, keys...)
	if err != nil {
		return nil, nil, err
	}

	st := &state{profiles: domain.Profiles{}, updates: map[string]any{}}
	if _, err := vals.Decode(domain.KeyProfiles, &st.profiles); err != nil {
		return nil, nil, err
	}
	if st.active, err = vals.String(domain.KeyActiveProfile); err != nil {
		return nil, nil, err
	}

	if len(st.profiles) == 0 {
		st.profiles[domain.DefaultProfile] = []string{}
		st.updates[domain.KeyProfiles] = st.profiles
	}
	if _, ok := st.profiles[st.active]; !ok {
		st.active = fallbackProfile(st.profiles)
		st.updates[domain.KeyActiveProfile] = st.active
	}
	return st, vals, nil
}

func (st *state) save(ctx context.Context, store kv.Store) error {
	if len(st.updates) == 0 {
		return nil
	}
	return store.Set(ctx, st.updates)
}

// fallbackProfile prefers Default, then the first name in display order.
func fallbackProfile(profiles domain.Profiles) string {
	if _, ok := profiles[domain.DefaultProfile]; ok {
		return domain.DefaultProfile
	}
	names := profiles.Names()
	if len(names) == 0 {
		return domain.DefaultProfile
	}
	return names[0]
}

// GetExtensions refreshes the inventory snapshot and returns it with the
// current profiles. Mods that were known but disappeared get their last
// name recorded in recentlyUninstalled.
func (a *Agent) GetExtensions(ctx context.Context) (Extensions, error) {
	detected, err := a.inventory.Detect(ctx)
	if err != nil {
		return Extensions{}, fmt.Errorf("detecting mods: %w", err)
	}
	if detected == nil {
		detected = []domain.Mod{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st, vals, err := a.load(ctx, domain.KeyDetectedModList, domain.KeyKnownDetectedIDs, domain.KeyRecentlyUninstalled)
	if err != nil {
		return Extensions{}, err
	}

	var previous []domain.Mod
	var known []string
	uninstalled := map[string]domain.UninstalledMod{}
	if _, err := vals.Decode(domain.KeyDetectedModList, &previous); err != nil {
		return Extensions{}, err
	}
	if _, err := vals.Decode(domain.KeyKnownDetectedIDs, &known); err != nil {
		return Extensions{}, err
	}
	if _, err := vals.Decode(domain.KeyRecentlyUninstalled, &uninstalled); err != nil {
		return Extensions{}, err
	}

	if !slices.Equal(previous, detected) {
		st.updates[domain.KeyDetectedModList] = detected
	}

	present := domain.NameIndex(detected)
	lastNames := domain.NameIndex(previous)
	uninstalledChanged := false
	for _, id := range known {
		if _, ok := present[id]; ok {
			continue
		}
		if _, ok := uninstalled[id]; ok {
			continue
		}
		if name := lastNames[id]; name != "" {
			uninstalled[id] = domain.UninstalledMod{Name: name}
			uninstalledChanged = true
			a.log.Debug("mod disappeared", "id", id, "name", name)
		}
	}
	for id := range uninstalled {
		if _, ok := present[id]; ok {
			delete(uninstalled, id)
			uninstalledChanged = true
		}
	}
	if uninstalledChanged {
		st.updates[domain.KeyRecentlyUninstalled] = uninstalled
	}

	merged := append([]string(nil), known...)
	for _, m := range detected {
		if !slices.Contains(merged, m.ID) {
			merged = append(merged, m.ID)
		}
	}
	if len(merged) != len(known) {
		st.updates[domain.KeyKnownDetectedIDs] = merged
	}

	if err := st.save(ctx, a.store); err != nil {
		return Extensions{}, fmt.Errorf("saving inventory snapshot: %w", err)
	}

	return Extensions{
		DetectedModList: detected,
		Profiles:        st.profiles,
		ActiveProfile:   st.active,
	}, nil
}

// SaveModExtensionIDs replaces the membership of profile.
func (a *Agent) SaveModExtensionIDs(ctx context.Context, ids []string, profile string) Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, _, err := a.load(ctx)
	if err != nil {
		return failure("%v", err)
	}
	if _, ok := st.profiles[profile]; !ok {
		return failure("Profile %q not found", profile)
	}

	members := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	st.profiles[profile] = members
	st.updates[domain.KeyProfiles] = st.profiles

	if err := st.save(ctx, a.store); err != nil {
		return failure("%v", err)
	}
	a.log.Debug("membership saved", "profile", profile, "count", len(members))
	return success()
}

// CreateProfile adds an empty profile.
func (a *Agent) CreateProfile(ctx context.Context, name string) Response {
	name, err := domain.ValidateProfileName(name)
	if err != nil {
		return failure("%v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st, _, err := a.load(ctx)
	if err != nil {
		return failure("%v", err)
	}
	if _, exists := st.profiles.Lookup(name); exists {
		return failure("A profile with this name already exists.")
	}

	st.profiles[name] = []string{}
	st.updates[domain.KeyProfiles] = st.profiles
	if err := st.save(ctx, a.store); err != nil {
		return failure("%v", err)
	}
	return success()
}

// RenameProfile moves membership from oldName to newName and follows it
// with activeProfile.
func (a *Agent) RenameProfile(ctx context.Context, oldName, newName string) Response {
	newName, err := domain.ValidateProfileName(newName)
	if err != nil {
		return failure("%v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st, _, err := a.load(ctx)
	if err != nil {
		return failure("%v", err)
	}
	members, ok := st.profiles[oldName]
	if !ok {
		return failure("Profile %q not found", oldName)
	}
	if existing, clash := st.profiles.Lookup(newName); clash && existing != oldName {
		return failure("A profile with this name already exists.")
	}
	if newName == oldName {
		return success()
	}

	delete(st.profiles, oldName)
	st.profiles[newName] = members
	st.updates[domain.KeyProfiles] = st.profiles
	if st.active == oldName {
		st.active = newName
		st.updates[domain.KeyActiveProfile] = newName
	}

	if err := st.save(ctx, a.store); err != nil {
		return failure("%v", err)
	}
	return success()
}

// DeleteProfile removes a profile. The last profile cannot be deleted and
// activeProfile moves to a remaining profile when it pointed at name.
func (a *Agent) DeleteProfile(ctx context.Context, name string) Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, _, err := a.load(ctx)
	if err != nil {
		return failure("%v", err)
	}
	if _, ok := st.profiles[name]; !ok {
		return failure("Profile %q not found", name)
	}
	if len(st.profiles) == 1 {
		return failure("Cannot delete the last profile.")
	}

	delete(st.profiles, name)
	st.updates[domain.KeyProfiles] = st.profiles
	if st.active == name {
		st.active = fallbackProfile(st.profiles)
		st.updates[domain.KeyActiveProfile] = st.active
	}

	if err := st.save(ctx, a.store); err != nil {
		return failure("%v", err)
	}
	return success()
}

// SetActiveProfile records the profile shown by default.
func (a *Agent) SetActiveProfile(ctx context.Context, name string) Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, _, err := a.load(ctx)
	if err != nil {
		return failure("%v", err)
	}
	if _, ok := st.profiles[name]; !ok {
		return failure("Profile %q not found", name)
	}
	if st.active != name {
		st.active = name
		st.updates[domain.KeyActiveProfile] = name
	}

	if err := st.save(ctx, a.store); err != nil {
		return failure("%v", err)
	}
	return success()
}
