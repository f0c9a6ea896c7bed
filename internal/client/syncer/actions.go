package syncer

import (
	"context"
	"strings"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// DefaultLabelColor is used when a label is added without a color.
const DefaultLabelColor = "#3b82f6"

// ActionKind enumerates the user actions.
type ActionKind int

const (
	ActionAddCounter ActionKind = iota + 1
	ActionIncrement
	ActionDecrement
	ActionReset
	ActionDelete
	ActionRename
	ActionDescribe
	ActionSetLabels
	ActionBeginEdit
	ActionSaveEdit
	ActionCancelEdit
	ActionAddLabel
	ActionDeleteLabel
	ActionResetAll
)

var actionNames = map[ActionKind]string{
	ActionAddCounter:  "add-counter",
	ActionIncrement:   "increment",
	ActionDecrement:   "decrement",
	ActionReset:       "reset",
	ActionDelete:      "delete",
	ActionRename:      "rename",
	ActionDescribe:    "describe",
	ActionSetLabels:   "set-labels",
	ActionBeginEdit:   "begin-edit",
	ActionSaveEdit:    "save-edit",
	ActionCancelEdit:  "cancel-edit",
	ActionAddLabel:    "add-label",
	ActionDeleteLabel: "delete-label",
	ActionResetAll:    "reset-all",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is one user action. Which fields are read depends on Kind.
type Action struct {
	Kind ActionKind
	// ID is the counter id, or the label id for ActionDeleteLabel.
	ID string
	// Text carries the new name, description, label name or raw edit input.
	Text   string
	Labels []string
	Color  string
}

// Dispatch runs the action.
func (c *Coordinator) Dispatch(ctx context.Context, a Action) Result {
	switch a.Kind {
	case ActionAddCounter:
		return c.AddCounter(ctx, a.Text)
	case ActionIncrement:
		return c.Increment(ctx, a.ID, 1)
	case ActionDecrement:
		return c.Increment(ctx, a.ID, -1)
	case ActionReset:
		return c.Reset(ctx, a.ID)
	case ActionDelete:
		return c.DeleteCounter(ctx, a.ID)
	case ActionRename:
		return c.Rename(ctx, a.ID, a.Text)
	case ActionDescribe:
		return c.Describe(ctx, a.ID, a.Text)
	case ActionSetLabels:
		return c.SetLabels(ctx, a.ID, a.Labels)
	case ActionBeginEdit:
		return c.BeginEdit(a.ID)
	case ActionSaveEdit:
		return c.SaveEdit(ctx, a.ID, a.Text)
	case ActionCancelEdit:
		return c.CancelEdit()
	case ActionAddLabel:
		return c.AddLabel(ctx, a.Text, a.Color)
	case ActionDeleteLabel:
		return c.DeleteLabel(ctx, a.ID)
	case ActionResetAll:
		return c.ResetAll(ctx)
	}
	return fail(domainerrors.Newf(domainerrors.CodeInvalidArgument, "unknown action %d", a.Kind))
}

func counterNotFound(id string) error {
	return domainerrors.Newf(domainerrors.CodeNotFound, "counter %q not found", id)
}

// updateCounter builds a mutation that edits one counter in place and sends
// patch in remote mode.
func (c *Coordinator) updateCounter(name, id string, edit func(*models.Counter), remote func(ctx context.Context, r RemoteStore) error) Mutation {
	return Mutation{
		Name: name,
		Apply: func(s *State) error {
			i := s.counterIndex(id)
			if i < 0 {
				return counterNotFound(id)
			}
			edit(&s.Counters[i])
			s.Counters[i].UpdatedAt = c.now()
			return nil
		},
		Remote: remote,
	}
}

func patchCounter(id string, patch models.CounterPatch) func(ctx context.Context, r RemoteStore) error {
	return func(ctx context.Context, r RemoteStore) error {
		return r.UpdateCounter(ctx, id, patch)
	}
}

// AddCounter creates a counter with count 0. In remote mode it appears once
// the remote store echoes it back.
func (c *Coordinator) AddCounter(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(domainerrors.InvalidArgument("counter name is required"))
	}
	return c.ApplyLocalMutation(ctx, Mutation{
		Name: "add-counter",
		Apply: func(s *State) error {
			if s.Mode == ModeRemote {
				return nil
			}
			now := c.now()
			s.Counters = append(s.Counters, models.Counter{
				ID:        c.newLocalID(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
				IsActive:  true,
			})
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error {
			_, err := r.CreateCounter(ctx, models.Counter{Name: name, IsActive: true})
			return err
		},
	})
}

// Increment adds delta to a counter's count.
func (c *Coordinator) Increment(ctx context.Context, id string, delta int64) Result {
	return c.ApplyLocalMutation(ctx, c.updateCounter("increment", id,
		func(ct *models.Counter) { ct.Count += delta },
		func(ctx context.Context, r RemoteStore) error { return r.IncrementCounter(ctx, id, delta) },
	))
}

// Reset sets a counter's count to 0.
func (c *Coordinator) Reset(ctx context.Context, id string) Result {
	var zero int64
	return c.ApplyLocalMutation(ctx, c.updateCounter("reset", id,
		func(ct *models.Counter) { ct.Count = 0 },
		patchCounter(id, models.CounterPatch{Count: &zero}),
	))
}

// Rename changes a counter's name. Blank names are rejected.
func (c *Coordinator) Rename(ctx context.Context, id, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(domainerrors.InvalidArgument("counter name is required"))
	}
	return c.ApplyLocalMutation(ctx, c.updateCounter("rename", id,
		func(ct *models.Counter) { ct.Name = name },
		patchCounter(id, models.CounterPatch{Name: &name}),
	))
}

// Describe changes a counter's description.
func (c *Coordinator) Describe(ctx context.Context, id, description string) Result {
	return c.ApplyLocalMutation(ctx, c.updateCounter("describe", id,
		func(ct *models.Counter) { ct.Description = description },
		patchCounter(id, models.CounterPatch{Description: &description}),
	))
}

// SetLabels replaces a counter's label ids. Ids are not checked against the
// label list.
func (c *Coordinator) SetLabels(ctx context.Context, id string, labels []string) Result {
	labels = models.NormalizeLabels(labels)
	sent := labels
	if sent == nil {
		sent = []string{}
	}
	return c.ApplyLocalMutation(ctx, c.updateCounter("set-labels", id,
		func(ct *models.Counter) { ct.Labels = append([]string(nil), labels...) },
		patchCounter(id, models.CounterPatch{Labels: &sent}),
	))
}

// DeleteCounter removes a counter. The remote store only flags it inactive.
func (c *Coordinator) DeleteCounter(ctx context.Context, id string) Result {
	return c.ApplyLocalMutation(ctx, Mutation{
		Name: "delete",
		Apply: func(s *State) error {
			i := s.counterIndex(id)
			if i < 0 {
				return counterNotFound(id)
			}
			s.Counters = append(s.Counters[:i:i], s.Counters[i+1:]...)
			if s.EditingID == id {
				s.EditingID = ""
			}
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error { return r.DeleteCounter(ctx, id) },
	})
}

// ResetAll empties the counter list.
func (c *Coordinator) ResetAll(ctx context.Context) Result {
	res := c.ApplyLocalMutation(ctx, Mutation{
		Name: "reset-all",
		Apply: func(s *State) error {
			s.Counters = []models.Counter{}
			s.EditingID = ""
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error { return r.ReplaceCounters(ctx, []models.Counter{}) },
	})
	if res.Success {
		c.setStatus(c.status(statusReset))
	}
	return res
}

// AddLabel creates a label. In remote mode it appears on the echo.
func (c *Coordinator) AddLabel(ctx context.Context, name, color string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail(domainerrors.InvalidArgument("label name is required"))
	}
	if color == "" {
		color = DefaultLabelColor
	}
	return c.ApplyLocalMutation(ctx, Mutation{
		Name: "add-label",
		Apply: func(s *State) error {
			if s.Mode == ModeRemote {
				return nil
			}
			s.Labels = append(s.Labels, models.Label{
				ID:        c.newLocalID(),
				Name:      name,
				Color:     color,
				CreatedAt: c.now(),
			})
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error {
			_, err := r.CreateLabel(ctx, models.Label{Name: name, Color: color})
			return err
		},
	})
}

// DeleteLabel removes a label. Counters keep referencing its id.
func (c *Coordinator) DeleteLabel(ctx context.Context, id string) Result {
	return c.ApplyLocalMutation(ctx, Mutation{
		Name: "delete-label",
		Apply: func(s *State) error {
			i := s.labelIndex(id)
			if i < 0 {
				return domainerrors.Newf(domainerrors.CodeNotFound, "label %q not found", id)
			}
			s.Labels = append(s.Labels[:i:i], s.Labels[i+1:]...)
			return nil
		},
		Remote: func(ctx context.Context, r RemoteStore) error { return r.DeleteLabel(ctx, id) },
	})
}
