package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"modrand/internal/background"
	"modrand/internal/core"
	"modrand/internal/domain"
	"modrand/internal/storage/kv"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowMembers blocks each save until released.
type slowMembers struct {
	mu      sync.Mutex
	saves   []core.Edit
	started chan struct{}
	release chan struct{}
}

func (s *slowMembers) SaveModExtensionIDs(_ context.Context, ids []string, profile string) background.Response {
	s.mu.Lock()
	s.saves = append(s.saves, core.Edit{Profile: profile, Checked: ids})
	s.mu.Unlock()
	s.started <- struct{}{}
	<-s.release
	return background.Response{Status: background.StatusSuccess}
}

func TestSaveCoordinator_CoalescesBurst(t *testing.T) {
	f := newFixture(t, 120*time.Millisecond)
	_, err := f.members.GetExtensions(context.Background())
	require.NoError(t, err)
	writesBefore := f.store.Writes()

	for i := 1; i <= 5; i++ {
		ids := make([]string, i)
		for j := range ids {
			ids[j] = fmt.Sprintf("m%d", j)
		}
		f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: ids})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, core.SavePending, f.saver.State())
	waitIdle(t, f.saver)

	saves := f.members.savedEdits()
	require.Len(t, saves, 1)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, saves[0].Checked)

	// one order write plus one membership write
	assert.Equal(t, writesBefore+2, f.store.Writes())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SaveWrites("success")))
}

func TestSaveCoordinator_OrderIsSuperset(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	seed(t, f.store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {"z"}},
	})

	steps := [][]string{{"a"}, {"a", "b"}, {"b"}, {}, {"c", "a"}}
	for _, checked := range steps {
		f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: checked})
		waitIdle(t, f.saver)
	}

	order := readOrder(t, f.store)["Default"]
	assert.Equal(t, []string{"z", "a", "b", "c"}, order)

	profiles, _ := readProfiles(t, f.store)
	assert.Equal(t, []string{"c", "a"}, profiles["Default"])
	for _, id := range profiles["Default"] {
		assert.Contains(t, order, id)
	}
}

func TestSaveCoordinator_OrderUnchangedSkipsWrite(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	seed(t, f.store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {"a"}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {"a", "b"}},
	})
	writes := f.store.Writes()

	f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"b"}})
	waitIdle(t, f.saver)

	// membership only
	assert.Equal(t, writes+1, f.store.Writes())
}

func TestSaveCoordinator_SuppressesRenderUntilRelease(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	assert.True(t, f.saver.RenderAllowed())
	assert.Equal(t, core.SaveIdle, f.saver.State())

	f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a"}})
	assert.False(t, f.saver.RenderAllowed())

	waitIdle(t, f.saver)
	assert.True(t, f.saver.RenderAllowed())
	assert.Equal(t, core.SaveIdle, f.saver.State())
}

func TestSaveCoordinator_AtMostOneWriteInFlight(t *testing.T) {
	store := kv.NewMemory()
	members := &slowMembers{started: make(chan struct{}), release: make(chan struct{})}
	saver := core.NewSaveCoordinator(core.SaveCoordinatorOpts{
		Store:    store,
		Members:  members,
		Debounce: 5 * time.Millisecond,
		Release:  5 * time.Millisecond,
	})

	saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a"}})
	<-members.started
	assert.Equal(t, core.SaveWriting, saver.State())

	// edits during the write wait for it
	saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a", "b"}})
	saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"b"}})
	time.Sleep(30 * time.Millisecond)
	members.mu.Lock()
	assert.Len(t, members.saves, 1)
	members.mu.Unlock()

	members.release <- struct{}{}
	<-members.started
	members.release <- struct{}{}
	waitIdle(t, saver)

	members.mu.Lock()
	defer members.mu.Unlock()
	require.Len(t, members.saves, 2)
	assert.Equal(t, []string{"b"}, members.saves[1].Checked)
}

func TestSaveCoordinator_TargetsProfileCapturedAtArm(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	require.True(t, f.members.CreateProfile(context.Background(), "Work").OK())

	f.saver.RecordEdit(core.Edit{Profile: "Work", Checked: []string{"a"}})
	require.True(t, f.members.SetActiveProfile(context.Background(), "Default").OK())
	waitIdle(t, f.saver)

	profiles, _ := readProfiles(t, f.store)
	assert.Equal(t, []string{"a"}, profiles["Work"])
	assert.Empty(t, profiles["Default"])
}

func TestSaveCoordinator_FailOpen(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	f.members.failSave = true

	f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a"}})
	waitIdle(t, f.saver)

	assert.True(t, f.saver.RenderAllowed())
	assert.Len(t, f.members.savedEdits(), 1, "failed saves are not retried")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SaveWrites("error")))
	assert.ErrorIs(t, f.saver.Err(), domain.ErrCollaborator)

	f.members.failSave = false
	f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a"}})
	waitIdle(t, f.saver)
	assert.NoError(t, f.saver.Err())
}

func TestSaveCoordinator_DropsEditForMissingProfile(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	seed(t, f.store, map[string]any{
		domain.KeyProfiles:      domain.Profiles{"Default": {}},
		domain.KeyProfilesOrder: domain.ProfileOrder{"Default": {}},
	})

	f.saver.RecordEdit(core.Edit{Profile: "Gone", Checked: []string{"a"}})
	waitIdle(t, f.saver)

	assert.NotContains(t, readOrder(t, f.store), "Gone")
	assert.Empty(t, f.members.savedEdits())
	assert.ErrorIs(t, f.saver.Err(), domain.ErrProfileNotFound)
}

func TestSaveCoordinator_CloseFlushesPending(t *testing.T) {
	f := newFixture(t, time.Hour)

	f.saver.RecordEdit(core.Edit{Profile: "Default", Checked: []string{"a"}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.saver.Close(ctx))

	saves := f.members.savedEdits()
	require.Len(t, saves, 1)
	assert.Equal(t, []string{"a"}, saves[0].Checked)
}

func TestSaveCoordinator_WaitHonoursContext(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.saver.RecordEdit(core.Edit{Profile: "Default"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.saver.Wait(ctx), context.DeadlineExceeded)
}

func TestSaveState_String(t *testing.T) {
	assert.Equal(t, "idle", core.SaveIdle.String())
	assert.Equal(t, "pending", core.SavePending.String())
	assert.Equal(t, "writing", core.SaveWriting.String())
}
