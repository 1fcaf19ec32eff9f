package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"modrand/internal/background"
	"modrand/internal/domain"
	"modrand/internal/storage/kv"
)

// SaveState is the save coordinator's position in Idle → Pending → Writing → Idle.
type SaveState int

const (
	SaveIdle SaveState = iota
	SavePending
	SaveWriting
)

func (s SaveState) String() string {
	switch s {
	case SavePending:
		return "pending"
	case SaveWriting:
		return "writing"
	default:
		return "idle"
	}
}

// Edit is a snapshot of the checked ids of one profile.
type Edit struct {
	Profile string
	Checked []string
}

// MembershipSaver receives the membership writes.
type MembershipSaver interface {
	SaveModExtensionIDs(ctx context.Context, ids []string, profile string) background.Response
}

// SaveCoordinatorOpts configures a SaveCoordinator.
type SaveCoordinatorOpts struct {
	Store   kv.Store
	Members MembershipSaver

	// Debounce is the quiet period after the last edit before writing.
	Debounce time.Duration
	// Release is how long renders stay suppressed after a write completes,
	// so the store's own change notifications do not re-render mid-edit.
	Release time.Duration

	Logger  *slog.Logger
	Metrics *Metrics
}

// SaveCoordinator coalesces checklist edits into single membership writes.
// Only the latest snapshot is written and at most one write is in flight.
// Renders are suppressed from the first edit until Release after the last
// write; the suppression is advisory and callers check RenderAllowed.
type SaveCoordinator struct {
	store    kv.Store
	members  MembershipSaver
	log      *slog.Logger
	metrics  *Metrics
	debounce time.Duration
	release  time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	pending     bool
	running     bool
	locked      bool
	edit        Edit
	releaseGen  int
	releaseWait *time.Timer
	idle        chan struct{}
	lastErr     error
}

// NewSaveCoordinator creates a coordinator. Zero durations use 120ms and 100ms.
func NewSaveCoordinator(opts SaveCoordinatorOpts) *SaveCoordinator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 120 * time.Millisecond
	}
	release := opts.Release
	if release <= 0 {
		release = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveCoordinator{
		store:    opts.Store,
		members:  opts.Members,
		log:      logger,
		metrics:  opts.Metrics,
		debounce: debounce,
		release:  release,
	}
}

// RecordEdit stores e as the latest snapshot and (re)arms the debounce timer.
func (c *SaveCoordinator) RecordEdit(e Edit) {
	c.arm(e)
}

// Flush is used by bulk actions. It shares the debounce timer with
// RecordEdit so bulk and single edits cannot race each other.
func (c *SaveCoordinator) Flush(e Edit) {
	c.arm(e)
}

func (c *SaveCoordinator) arm(e Edit) {
	c.mu.Lock()
	c.edit = Edit{Profile: e.Profile, Checked: slices.Clone(e.Checked)}
	if c.edit.Checked == nil {
		c.edit.Checked = []string{}
	}
	c.pending = true
	c.locked = true
	c.cancelReleaseLocked()
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.onTimer)
	} else {
		c.timer.Reset(c.debounce)
	}
	c.metrics.state(c.stateLocked())
	c.mu.Unlock()

	c.metrics.editRecorded()
}

func (c *SaveCoordinator) onTimer() {
	c.mu.Lock()
	if c.running {
		// a write is in flight; come back for the newer snapshot
		c.timer.Reset(c.debounce)
		c.mu.Unlock()
		return
	}
	if !c.pending {
		c.scheduleReleaseLocked()
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.running = true
	edit := c.edit
	c.metrics.state(c.stateLocked())
	c.mu.Unlock()

	err := c.write(context.Background(), edit)
	c.metrics.writeDone(err)
	if err != nil {
		// Not retried: the next full reconcile re-reads membership from the store.
		c.log.Warn("saving mod selection failed", "profile", edit.Profile, "error", err)
	} else {
		c.log.Debug("mod selection saved", "profile", edit.Profile, "checked", len(edit.Checked))
	}

	c.mu.Lock()
	c.running = false
	c.lastErr = err
	if c.pending {
		c.timer.Reset(c.debounce)
	} else {
		c.scheduleReleaseLocked()
	}
	c.metrics.state(c.stateLocked())
	c.mu.Unlock()
}

// write grows the profile's stored order with newly checked ids, then hands
// the membership to the collaborator. An edit for a profile that was renamed
// or deleted since it was recorded is dropped.
func (c *SaveCoordinator) write(ctx context.Context, e Edit) error {
	vals, err := kv.Read(ctx, c.store, domain.KeyProfiles, domain.KeyProfilesOrder)
	if err != nil {
		return err
	}
	profiles := domain.Profiles{}
	order := domain.ProfileOrder{}
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return err
	}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return err
	}
	if !profileExists(profiles, e.Profile) {
		return fmt.Errorf("%w: %s", domain.ErrProfileNotFound, e.Profile)
	}

	existing, ok := order[e.Profile]
	merged := appendMissing(existing, e.Checked)
	if !ok || len(merged) != len(existing) {
		order[e.Profile] = merged
		if err := c.store.Set(ctx, map[string]any{domain.KeyProfilesOrder: order}); err != nil {
			return fmt.Errorf("saving profile order: %w", err)
		}
	}

	return c.members.SaveModExtensionIDs(ctx, e.Checked, e.Profile).Err("save mod selection")
}

// profileExists treats an empty store as holding only the Default profile,
// which the collaborator creates on first use.
func profileExists(profiles domain.Profiles, name string) bool {
	if len(profiles) == 0 {
		return name == domain.DefaultProfile
	}
	_, ok := profiles[name]
	return ok
}

func (c *SaveCoordinator) scheduleReleaseLocked() {
	if c.releaseWait != nil || !c.locked {
		return
	}
	c.releaseGen++
	gen := c.releaseGen
	c.releaseWait = time.AfterFunc(c.release, func() { c.unlockRender(gen) })
}

func (c *SaveCoordinator) cancelReleaseLocked() {
	if c.releaseWait != nil {
		c.releaseWait.Stop()
		c.releaseWait = nil
	}
	c.releaseGen++
}

func (c *SaveCoordinator) unlockRender(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.releaseGen || c.pending || c.running {
		return
	}
	c.releaseWait = nil
	c.locked = false
	c.metrics.state(SaveIdle)
	if c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
}

func (c *SaveCoordinator) stateLocked() SaveState {
	switch {
	case c.running:
		return SaveWriting
	case c.pending:
		return SavePending
	case c.locked:
		// written, waiting out the release delay
		return SaveWriting
	default:
		return SaveIdle
	}
}

// State reports the current state.
func (c *SaveCoordinator) State() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Err returns the error of the most recent write, nil once a write succeeds.
func (c *SaveCoordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RenderAllowed is false from the first edit until the release delay after
// the last write has passed.
func (c *SaveCoordinator) RenderAllowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.locked
}

// Wait blocks until the coordinator is idle and renders are allowed again.
func (c *SaveCoordinator) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.pending && !c.running && !c.locked {
			c.mu.Unlock()
			return nil
		}
		if c.idle == nil {
			c.idle = make(chan struct{})
		}
		ch := c.idle
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Close writes any pending edit without waiting out the debounce window and
// blocks until the coordinator is idle.
func (c *SaveCoordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	fireNow := c.pending && !c.running && c.timer != nil && c.timer.Stop()
	c.mu.Unlock()

	if fireNow {
		c.onTimer()
	}
	return c.Wait(ctx)
}
