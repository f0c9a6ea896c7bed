// Package syncer owns the shell's counters and labels and routes every change
// to the right persistence target: the local store while signed out, the
// remote store while signed in.
//
// In remote mode local changes are applied optimistically and never rolled
// back; incoming snapshots replace a whole collection. The last snapshot wins.
package syncer

import (
	"context"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Options configure a Coordinator.
type Options struct {
	Local    LocalStore
	Remote   RemoteStore
	Renderer Renderer
	Logger   *zap.Logger
	// Locale selects status and error texts; unknown locales fall back to ja.
	Locale string
}

// Coordinator is the sync coordinator. All state access goes through mu.
type Coordinator struct {
	local    LocalStore
	remote   RemoteStore
	renderer Renderer
	log      *zap.Logger
	locale   string
	now      func() time.Time

	mu    sync.Mutex
	state State
	// gen identifies the current remote session; snapshots of older sessions are dropped.
	gen   int
	stops []func()
	wg    sync.WaitGroup
}

// New returns a coordinator in local mode with empty state. Call Load to read
// the local store.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		local:    opts.Local,
		remote:   opts.Remote,
		renderer: opts.Renderer,
		log:      opts.Logger,
		locale:   opts.Locale,
		now:      time.Now,
	}
	if c.renderer == nil {
		c.renderer = RendererFunc(func(View) {})
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.locale == "" {
		c.locale = domainerrors.LocaleJA
	}
	c.state.Counters = []models.Counter{}
	c.state.Labels = []models.Label{}
	return c
}

// Load replaces both collections with the local store's contents and renders.
func (c *Coordinator) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocalLocked()
	c.renderLocked()
}

// Render draws the current state again.
func (c *Coordinator) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked()
}

// View returns a copy of the current state.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.view()
}

// Status returns the last status line.
func (c *Coordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// Mode returns the current persistence mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

func (c *Coordinator) loadLocalLocked() {
	c.state.Counters = c.local.LoadCounters()
	c.state.Labels = c.local.LoadLabels()
}

func (c *Coordinator) persistLocked() {
	c.local.SaveCounters(c.state.Counters)
	c.local.SaveLabels(c.state.Labels)
}

func (c *Coordinator) renderLocked() {
	c.renderer.Render(c.state.view())
}

func (c *Coordinator) setStatus(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Status = text
	c.renderLocked()
}

// Mutation is one change to the state and its remote counterpart.
type Mutation struct {
	// Name is used in logs.
	Name string
	// Apply changes the state in memory. It must leave the state untouched
	// when it returns an error.
	Apply func(s *State) error
	// Remote issues the matching remote write. It only runs in remote mode.
	Remote func(ctx context.Context, r RemoteStore) error
}

// ApplyLocalMutation applies m to the state and renders, then writes the
// change to the active persistence target. In remote mode the write runs
// outside the lock and a failure leaves the in-memory change in place.
func (c *Coordinator) ApplyLocalMutation(ctx context.Context, m Mutation) Result {
	c.mu.Lock()
	if m.Apply != nil {
		if err := m.Apply(&c.state); err != nil {
			c.mu.Unlock()
			return fail(err)
		}
	}
	remote := c.state.Mode == ModeRemote
	if !remote {
		c.persistLocked()
	}
	c.renderLocked()
	c.mu.Unlock()

	if !remote || m.Remote == nil {
		return ok()
	}
	if err := m.Remote(ctx, c.remote); err != nil {
		c.log.Warn("remote write failed", zap.String("mutation", m.Name), zap.Error(err))
		c.setStatus(c.status(statusSyncFailed, c.describe(err)))
		return fail(err)
	}
	return ok()
}

// newLocalID returns a time-ordered id for an item created while signed out.
func (c *Coordinator) newLocalID() string {
	suffix, err := gonanoid.Generate(idAlphabet, 11)
	if err != nil {
		suffix = strconv.FormatInt(c.now().UnixNano(), 36)
	}
	return strconv.FormatInt(c.now().UnixMilli(), 10) + suffix
}

// EnterRemoteMode starts a remote session for identity: both collections are
// subscribed and the remote store becomes the write target.
func (c *Coordinator) EnterRemoteMode(ctx context.Context, identity *models.Identity) error {
	if c.remote == nil {
		return domainerrors.Newf(domainerrors.CodeUnavailable, "remote store not configured")
	}
	if identity == nil {
		return domainerrors.ErrUnauthenticated
	}
	c.stopSubscriptions()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	id := *identity
	c.state.Identity = &id
	c.state.Mode = ModeRemote
	c.mu.Unlock()

	stops := make([]func(), 0, 2)
	for _, collection := range []string{models.CollectionCounters, models.CollectionLabels} {
		events, stop, err := c.remote.Listen(ctx, collection)
		if err != nil {
			for _, s := range stops {
				s()
			}
			c.leaveRemote()
			return err
		}
		stops = append(stops, stop)
		c.wg.Add(1)
		go c.consume(gen, events)
	}

	c.mu.Lock()
	c.stops = stops
	c.state.Status = c.status(statusSyncStarted)
	c.renderLocked()
	c.mu.Unlock()

	c.log.Info("remote session started", zap.String("user", id.UserID))
	return nil
}

// ExitRemoteMode ends the remote session: subscriptions are cancelled, the
// remote cache is cleared and the state is reloaded from the local store with
// no edit session open.
func (c *Coordinator) ExitRemoteMode() {
	c.stopSubscriptions()
	if c.remote != nil {
		c.remote.ClearCache()
	}
	c.leaveRemote()
	c.log.Info("remote session ended")
}

func (c *Coordinator) leaveRemote() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state.Mode = ModeLocal
	c.state.Identity = nil
	c.state.EditingID = ""
	c.state.Status = c.status(statusSyncStopped)
	c.loadLocalLocked()
	c.renderLocked()
}

func (c *Coordinator) stopSubscriptions() {
	c.mu.Lock()
	stops := c.stops
	c.stops = nil
	c.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	c.wg.Wait()
}

func (c *Coordinator) consume(gen int, events <-chan models.Snapshot) {
	defer c.wg.Done()
	for snap := range events {
		c.applySnapshot(gen, snap)
	}
}

// OnRemoteSnapshot replaces the snapshot's collection wholesale and renders.
// Error snapshots only update the status line. Snapshots are ignored outside
// remote mode.
func (c *Coordinator) OnRemoteSnapshot(snap models.Snapshot) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.applySnapshot(gen, snap)
}

func (c *Coordinator) applySnapshot(gen int, snap models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeRemote || gen != c.gen {
		return
	}
	if snap.Err != nil {
		c.log.Debug("error snapshot", zap.String("collection", snap.Collection), zap.Error(snap.Err))
		c.state.Status = c.status(statusSyncFailed, c.describe(snap.Err))
		c.renderLocked()
		return
	}
	switch snap.Collection {
	case models.CollectionCounters:
		c.state.Counters = cloneCounters(snap.Counters)
	case models.CollectionLabels:
		c.state.Labels = append([]models.Label{}, snap.Labels...)
	default:
		return
	}
	c.state.LastSyncedAt = c.now()
	c.state.Status = c.status(statusSynced)
	c.renderLocked()
}

// Close stops any remote session without reloading local state.
func (c *Coordinator) Close() {
	c.stopSubscriptions()
}
