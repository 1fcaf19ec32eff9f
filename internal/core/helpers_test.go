package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"modrand/internal/background"
	"modrand/internal/core"
	"modrand/internal/domain"
	"modrand/internal/storage/kv"

	"github.com/stretchr/testify/require"
)

type fakeInventory struct {
	mu   sync.Mutex
	mods []domain.Mod
}

func (f *fakeInventory) Detect(context.Context) ([]domain.Mod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Mod(nil), f.mods...), nil
}

func (f *fakeInventory) set(mods ...domain.Mod) {
	f.mu.Lock()
	f.mods = mods
	f.mu.Unlock()
}

// fakeMembers records membership saves and can be told to fail.
type fakeMembers struct {
	*background.Agent

	mu         sync.Mutex
	saves      []core.Edit
	failSave   bool
	failRename bool
	failDelete bool
}

func (f *fakeMembers) SaveModExtensionIDs(ctx context.Context, ids []string, profile string) background.Response {
	f.mu.Lock()
	f.saves = append(f.saves, core.Edit{Profile: profile, Checked: append([]string(nil), ids...)})
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return background.Response{Status: background.StatusError, Message: "storage quota exceeded"}
	}
	return f.Agent.SaveModExtensionIDs(ctx, ids, profile)
}

func (f *fakeMembers) RenameProfile(ctx context.Context, oldName, newName string) background.Response {
	if f.failRename {
		return background.Response{Status: background.StatusError, Message: "rename refused"}
	}
	return f.Agent.RenameProfile(ctx, oldName, newName)
}

func (f *fakeMembers) DeleteProfile(ctx context.Context, name string) background.Response {
	if f.failDelete {
		return background.Response{Status: background.StatusError, Message: "delete refused"}
	}
	return f.Agent.DeleteProfile(ctx, name)
}

func (f *fakeMembers) savedEdits() []core.Edit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Edit(nil), f.saves...)
}

type fixture struct {
	store     *kv.Memory
	inventory *fakeInventory
	members   *fakeMembers
	saver     *core.SaveCoordinator
	session   *core.Session
	profiles  *core.ProfileManager
	merge     *core.MergeEngine
	gc        *core.GarbageCollector
	metrics   *core.Metrics
}

func newFixture(t *testing.T, debounce time.Duration, mods ...domain.Mod) *fixture {
	t.Helper()
	store := kv.NewMemory()
	inv := &fakeInventory{mods: mods}
	members := &fakeMembers{Agent: background.New(store, inv, nil)}
	metrics := core.NewMetrics()

	saver := core.NewSaveCoordinator(core.SaveCoordinatorOpts{
		Store:    store,
		Members:  members,
		Debounce: debounce,
		Release:  10 * time.Millisecond,
		Metrics:  metrics,
	})
	gc := core.NewGarbageCollector(store, nil, metrics)
	session := core.NewSession(core.SessionOpts{
		Store:      store,
		Members:    members,
		Reconciler: core.NewReconciler(store, nil),
		Collector:  gc,
		Saver:      saver,
		Metrics:    metrics,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = session.Close(ctx)
	})

	return &fixture{
		store:     store,
		inventory: inv,
		members:   members,
		saver:     saver,
		session:   session,
		profiles:  core.NewProfileManager(store, members, session),
		merge:     core.NewMergeEngine(store, nil, metrics),
		gc:        gc,
		metrics:   metrics,
	}
}

func seed(t *testing.T, store kv.Store, values map[string]any) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), values))
}

func readOrder(t *testing.T, store kv.Store) domain.ProfileOrder {
	t.Helper()
	vals, err := kv.Read(context.Background(), store, domain.KeyProfilesOrder)
	require.NoError(t, err)
	order := domain.ProfileOrder{}
	_, err = vals.Decode(domain.KeyProfilesOrder, &order)
	require.NoError(t, err)
	return order
}

func readProfiles(t *testing.T, store kv.Store) (domain.Profiles, string) {
	t.Helper()
	vals, err := kv.Read(context.Background(), store, domain.KeyProfiles, domain.KeyActiveProfile)
	require.NoError(t, err)
	profiles := domain.Profiles{}
	_, err = vals.Decode(domain.KeyProfiles, &profiles)
	require.NoError(t, err)
	active, err := vals.String(domain.KeyActiveProfile)
	require.NoError(t, err)
	return profiles, active
}

func waitIdle(t *testing.T, saver *core.SaveCoordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, saver.Wait(ctx))
}

func rowIDs(v core.View) []string {
	ids := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.ID
	}
	return ids
}
