// Package view renders the coordinator state as plain text for the shell.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/atinyakov/GophTally/internal/client/syncer"
	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

type phrases struct {
	empty, emptyHint, local, labels, editing, lastSync string
}

var text = map[string]phrases{
	domainerrors.LocaleJA: {
		empty:     "カウンターがありません。",
		emptyHint: "add <名前> で新しいカウンターを追加してください。",
		local:     "ローカル",
		labels:    "ラベル",
		editing:   "編集中: save %s <値> / cancel",
		lastSync:  "最終同期",
	},
	domainerrors.LocaleEN: {
		empty:     "No counters yet.",
		emptyHint: "Use add <name> to create one.",
		local:     "local",
		labels:    "Labels",
		editing:   "editing: save %s <value> / cancel",
		lastSync:  "last sync",
	},
}

// Text writes a full listing on every render.
type Text struct {
	w      io.Writer
	p      phrases
	now    func() time.Time
	mu     sync.Mutex
	silent bool
}

// New returns a renderer writing to w in locale.
func New(w io.Writer, locale string) *Text {
	p, ok := text[locale]
	if !ok {
		p = text[domainerrors.LocaleJA]
	}
	return &Text{w: w, p: p, now: time.Now}
}

// SetSilent suppresses output until called again with false.
func (t *Text) SetSilent(silent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.silent = silent
}

// Render implements syncer.Renderer.
func (t *Text) Render(v syncer.View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.silent {
		return
	}
	_, _ = io.WriteString(t.w, t.format(v))
}

func (t *Text) format(v syncer.View) string {
	var b strings.Builder

	header := "[" + t.p.local + "]"
	if v.Identity != nil {
		header = "[" + v.Mode.String() + ": " + v.Identity.Email + "]"
	}
	b.WriteString(header)
	if v.Status != "" {
		b.WriteString(" " + v.Status)
	}
	if !v.LastSyncedAt.IsZero() {
		fmt.Fprintf(&b, " (%s %s)", t.p.lastSync, humanize.RelTime(v.LastSyncedAt, t.now(), "ago", "from now"))
	}
	b.WriteString("\n")

	if len(v.Counters) == 0 {
		b.WriteString("  " + t.p.empty + "\n  " + t.p.emptyHint + "\n")
	}
	for i, c := range v.Counters {
		count := humanize.Comma(c.Count)
		if v.EditingID == c.ID {
			count = "[" + count + "] " + fmt.Sprintf(t.p.editing, c.ID)
		}
		fmt.Fprintf(&b, "%3d) %-20s %s", i+1, c.Name, count)
		if names := labelNames(v, c.Labels); len(names) > 0 {
			b.WriteString("  {" + strings.Join(names, ", ") + "}")
		}
		b.WriteString("  #" + c.ID + "\n")
		if c.Description != "" {
			b.WriteString("     " + c.Description + "\n")
		}
	}

	if len(v.Labels) > 0 {
		parts := make([]string, 0, len(v.Labels))
		for _, l := range v.Labels {
			parts = append(parts, fmt.Sprintf("%s(%s) #%s", l.Name, l.Color, l.ID))
		}
		b.WriteString(t.p.labels + ": " + strings.Join(parts, ", ") + "\n")
	}
	return b.String()
}

// labelNames resolves ids to names. Ids without a label are skipped.
func labelNames(v syncer.View, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, ok := v.Label(id); ok {
			names = append(names, l.Name)
		}
	}
	return names
}
