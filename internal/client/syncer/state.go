package syncer

import (
	"context"
	"time"

	"github.com/atinyakov/GophTally/internal/models"
)

// Mode selects where mutations are written.
type Mode int

const (
	// ModeLocal writes to the local store.
	ModeLocal Mode = iota
	// ModeRemote writes to the remote store and takes state from its snapshots.
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

// State is everything the coordinator owns.
type State struct {
	Counters []models.Counter
	Labels   []models.Label
	// EditingID is the counter whose count is being edited, or empty.
	EditingID string
	// Identity is nil while signed out.
	Identity     *models.Identity
	Mode         Mode
	Status       string
	LastSyncedAt time.Time
}

// View is a copy of State handed to the renderer. It shares nothing with the
// coordinator's state.
type View State

// Counter returns the counter with id.
func (v View) Counter(id string) (models.Counter, bool) {
	for _, c := range v.Counters {
		if c.ID == id {
			return c, true
		}
	}
	return models.Counter{}, false
}

// Label returns the label with id.
func (v View) Label(id string) (models.Label, bool) {
	for _, l := range v.Labels {
		if l.ID == id {
			return l, true
		}
	}
	return models.Label{}, false
}

func (s *State) view() View {
	v := View(*s)
	v.Counters = cloneCounters(s.Counters)
	v.Labels = append([]models.Label{}, s.Labels...)
	if s.Identity != nil {
		id := *s.Identity
		v.Identity = &id
	}
	return v
}

func (s *State) counterIndex(id string) int {
	for i := range s.Counters {
		if s.Counters[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) labelIndex(id string) int {
	for i := range s.Labels {
		if s.Labels[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneCounters(in []models.Counter) []models.Counter {
	out := make([]models.Counter, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// Renderer draws the state. Render is called with the coordinator lock held
// and must not call back into the coordinator.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v View)

// Render calls f(v).
func (f RendererFunc) Render(v View) { f(v) }

// LocalStore is the local persistence target used while signed out.
type LocalStore interface {
	LoadCounters() []models.Counter
	SaveCounters(items []models.Counter)
	LoadLabels() []models.Label
	SaveLabels(items []models.Label)
}

// RemoteStore is the remote persistence target used while signed in.
type RemoteStore interface {
	CreateCounter(ctx context.Context, counter models.Counter) (string, error)
	UpdateCounter(ctx context.Context, id string, patch models.CounterPatch) error
	IncrementCounter(ctx context.Context, id string, amount int64) error
	DeleteCounter(ctx context.Context, id string) error
	ReplaceCounters(ctx context.Context, counters []models.Counter) error
	CreateLabel(ctx context.Context, label models.Label) (string, error)
	DeleteLabel(ctx context.Context, id string) error
	// Listen streams snapshots of collection until the returned func is called.
	Listen(ctx context.Context, collection string) (<-chan models.Snapshot, func(), error)
	ClearCache()
}

// Result is the outcome of a user action.
type Result struct {
	Success bool
	Error   error
}

func ok() Result { return Result{Success: true} }

func fail(err error) Result { return Result{Error: err} }
