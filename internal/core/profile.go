package core

import (
	"context"
	"fmt"
	"strings"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// ProfileManager handles profile CRUD operations and switching. Membership
// changes go through the collaborator; the manager keeps profilesOrder in
// step, but only after the collaborator reports success.
type ProfileManager struct {
	store   kv.Store
	members Collaborator
	session *Session
}

// NewProfileManager creates a new profile manager
func NewProfileManager(store kv.Store, members Collaborator, session *Session) *ProfileManager {
	return &ProfileManager{
		store:   store,
		members: members,
		session: session,
	}
}

// List returns the stored profiles and the active profile name.
func (pm *ProfileManager) List(ctx context.Context) (domain.Profiles, string, error) {
	vals, err := kv.Read(ctx, pm.store, domain.KeyProfiles, domain.KeyActiveProfile)
	if err != nil {
		return nil, "", err
	}
	profiles := domain.Profiles{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return nil, "", err
	}
	active, err := vals.String(domain.KeyActiveProfile)
	if err != nil {
		return nil, "", err
	}
	return profiles, active, nil
}

// Create adds an empty profile and makes it the active one.
func (pm *ProfileManager) Create(ctx context.Context, raw string) (string, error) {
	name, err := domain.ValidateProfileName(raw)
	if err != nil {
		return "", err
	}

	profiles, _, err := pm.List(ctx)
	if err != nil {
		return "", err
	}
	if _, exists := profiles.Lookup(name); exists {
		return "", domain.DuplicateProfileError(name)
	}

	if err := pm.members.CreateProfile(ctx, name).Err("create profile"); err != nil {
		return "", err
	}
	if err := pm.members.SetActiveProfile(ctx, name).Err("set active profile"); err != nil {
		return "", err
	}
	if err := pm.session.setCurrent(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

// Rename renames a profile. The stored order moves to the new name only
// once the collaborator has renamed the membership.
func (pm *ProfileManager) Rename(ctx context.Context, oldName, raw string) (string, error) {
	newName := strings.TrimSpace(raw)
	if newName == "" || newName == oldName {
		return "", &domain.ValidationError{Field: "new profile name", Reason: "is empty or unchanged"}
	}
	newName, err := domain.ValidateProfileName(newName)
	if err != nil {
		return "", err
	}

	if err := pm.flush(ctx); err != nil {
		return "", err
	}

	profiles, _, err := pm.List(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := profiles[oldName]; !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrProfileNotFound, oldName)
	}
	if existing, clash := profiles.Lookup(newName); clash && existing != oldName {
		return "", domain.DuplicateProfileError(newName)
	}

	if err := pm.members.RenameProfile(ctx, oldName, newName).Err("rename profile"); err != nil {
		return "", err
	}

	if err := pm.moveOrder(ctx, oldName, newName); err != nil {
		return "", err
	}

	if pm.session.Current() == oldName {
		err = pm.session.setCurrent(ctx, newName)
	} else {
		err = pm.session.reload(ctx, false)
	}
	if err != nil {
		return "", err
	}
	return newName, nil
}

// moveOrder renames or, with an empty to, removes an order entry.
func (pm *ProfileManager) moveOrder(ctx context.Context, from, to string) error {
	vals, err := kv.Read(ctx, pm.store, domain.KeyProfilesOrder)
	if err != nil {
		return err
	}
	order := domain.ProfileOrder{}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return err
	}
	ids, ok := order[from]
	if !ok {
		return nil
	}
	delete(order, from)
	if to != "" {
		order[to] = ids
	}
	if err := pm.store.Set(ctx, map[string]any{domain.KeyProfilesOrder: order}); err != nil {
		return fmt.Errorf("saving profile order: %w", err)
	}
	return nil
}

// Delete removes a profile. Its stored order is dropped only after the
// collaborator deleted the membership; the collaborator also moves the
// active profile off a deleted one, and the session follows it.
func (pm *ProfileManager) Delete(ctx context.Context, name string) error {
	if err := pm.flush(ctx); err != nil {
		return err
	}

	profiles, _, err := pm.List(ctx)
	if err != nil {
		return err
	}
	if _, ok := profiles[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
	}
	if len(profiles) == 1 {
		return domain.ErrLastProfile
	}

	if err := pm.members.DeleteProfile(ctx, name).Err("delete profile"); err != nil {
		return err
	}
	if err := pm.moveOrder(ctx, name, ""); err != nil {
		return err
	}
	return pm.session.reload(ctx, pm.session.Current() == name)
}

// flush writes pending checklist edits under the profile's current name
// before the name changes or goes away.
func (pm *ProfileManager) flush(ctx context.Context) error {
	if err := pm.session.Saver().Close(ctx); err != nil {
		return fmt.Errorf("flushing pending edits: %w", err)
	}
	return nil
}

// Switch shows another profile and makes it the active one. It is refused
// while a save holds the render lock.
func (pm *ProfileManager) Switch(ctx context.Context, name string) error {
	view, err := pm.session.Show(ctx, name)
	if err != nil {
		return err
	}
	return pm.members.SetActiveProfile(ctx, view.Profile).Err("set active profile")
}
