package syncer

import (
	"context"
	"strconv"
	"strings"

	"github.com/atinyakov/GophTally/internal/models"
)

// BeginEdit opens the edit session on a counter, closing any other one.
func (c *Coordinator) BeginEdit(id string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.counterIndex(id) < 0 {
		return fail(counterNotFound(id))
	}
	c.state.EditingID = id
	c.renderLocked()
	return ok()
}

// EditingID returns the counter in edit, or empty.
func (c *Coordinator) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.EditingID
}

// SaveEdit sets the count from the raw input text and closes the edit
// session. Text without a leading integer sets the count to 0.
func (c *Coordinator) SaveEdit(ctx context.Context, id, text string) Result {
	val := parseLeadingInt(text)
	m := c.updateCounter("save-edit", id,
		func(ct *models.Counter) { ct.Count = val },
		patchCounter(id, models.CounterPatch{Count: &val}),
	)
	apply := m.Apply
	m.Apply = func(s *State) error {
		if err := apply(s); err != nil {
			return err
		}
		s.EditingID = ""
		return nil
	}
	return c.ApplyLocalMutation(ctx, m)
}

// CancelEdit closes the edit session without changing anything.
func (c *Coordinator) CancelEdit() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.EditingID = ""
	c.renderLocked()
	return ok()
}

// parseLeadingInt reads an optionally signed run of digits at the start of s,
// ignoring surrounding space. Anything else, or an out of range value, is 0.
func parseLeadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
