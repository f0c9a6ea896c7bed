// Package models defines the core data structures for counters, labels and users.
package models

import (
	"encoding/json"
	"slices"
	"time"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

// Collection names shared by the local store keys, the remote API and live snapshots.
const (
	CollectionCounters = "counters"
	CollectionLabels   = "labels"
)

// Counter is a named integer tally with optional description and label references.
type Counter struct {
	// ID is the opaque identifier; it never changes once assigned.
	ID string `json:"id"`
	// Name is free display text, not unique.
	Name string `json:"name"`
	// Description is an optional note.
	Description string `json:"description,omitempty"`
	// Count may go negative.
	Count int64 `json:"count"`
	// Labels is an ordered set of label ids. Ids are weak references.
	Labels []string `json:"labels,omitempty"`
	// CreatedAt is the creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is stamped by every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
	// IsActive is false once a remote counter has been soft-deleted.
	IsActive bool `json:"isActive"`
	// UserID is the remote owner, empty for local counters.
	UserID string `json:"userId,omitempty"`
}

// HasLabel reports whether the counter references the label id.
func (c Counter) HasLabel(id string) bool {
	return slices.Contains(c.Labels, id)
}

// Clone returns a copy that shares no slices with c.
func (c Counter) Clone() Counter {
	c.Labels = slices.Clone(c.Labels)
	return c
}

// NormalizeLabels drops empty and repeated ids, keeping first occurrence order.
func NormalizeLabels(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Label is a named, colored tag that counters reference by id.
type Label struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId,omitempty"`
}

// CounterPatch carries the fields of a partial counter update. Nil fields are left untouched.
type CounterPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Count       *int64    `json:"count,omitempty"`
	Labels      *[]string `json:"labels,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CounterPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Count == nil && p.Labels == nil
}

// CounterUpdate pairs a counter id with a patch, used by batch updates.
type CounterUpdate struct {
	ID    string       `json:"id"`
	Patch CounterPatch `json:"data"`
}

// LabelPatch carries the fields of a partial label update.
type LabelPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// User represents an account of the remote store.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Email is the sign-in address, unique.
	Email string
	// DisplayName is optional.
	DisplayName string
	// PasswordHash is the bcrypt hash of the password.
	PasswordHash []byte
	// Preferences holds the per-user settings.
	Preferences Preferences
	// CreatedAt is the sign-up time.
	CreatedAt time.Time
	// LastLoginAt is stamped on every successful sign-in.
	LastLoginAt time.Time
}

// Preferences are per-user display settings kept by the remote store.
type Preferences struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	DefaultView string `json:"defaultView"`
}

// DefaultPreferences are seeded for new accounts.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", Language: "ja", DefaultView: "grid"}
}

// Identity is the signed-in user as seen by a client.
type Identity struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Snapshot is a complete point-in-time list of one collection's active items.
// A non-nil Err marks a failed delivery; the lists are empty in that case.
type Snapshot struct {
	Collection string
	Counters   []Counter
	Labels     []Label
	Err        error
}

// LiveMessage is the websocket frame carrying one snapshot of a collection.
// Data holds a JSON array of counters or labels; Error is set instead when the
// server could not produce the snapshot.
type LiveMessage struct {
	Collection string              `json:"collection"`
	Data       json.RawMessage     `json:"data,omitempty"`
	Error      *domainerrors.Error `json:"error,omitempty"`
}
