package remote

import (
	"context"
	"net/http"
	"net/url"
	"slices"

	"github.com/atinyakov/GophTally/internal/models"
)

type createdResponse struct {
	ID string `json:"id"`
}

type counterRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Count       int64    `json:"count"`
	Labels      []string `json:"labels"`
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func cloneCounters(in []models.Counter) []models.Counter {
	out := make([]models.Counter, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func cloneLabels(in []models.Label) []models.Label {
	if in == nil {
		return []models.Label{}
	}
	return slices.Clone(in)
}

func counterPath(id string) string {
	return "/api/counters/" + url.PathEscape(id)
}

func labelPath(id string) string {
	return "/api/labels/" + url.PathEscape(id)
}

// FetchCounters returns the active counters, most recently updated first.
func (c *Client) FetchCounters(ctx context.Context) ([]models.Counter, error) {
	return cachedGet(ctx, c, "counters?isActive=true&orderBy=updatedAt+desc", "/api/counters", cloneCounters)
}

// CreateCounter stores a new counter and returns the id the server assigned.
func (c *Client) CreateCounter(ctx context.Context, counter models.Counter) (string, error) {
	in := counterRequest{
		Name:        counter.Name,
		Description: counter.Description,
		Count:       counter.Count,
		Labels:      models.NormalizeLabels(counter.Labels),
	}
	if in.Labels == nil {
		in.Labels = []string{}
	}
	var out createdResponse
	if err := c.call(ctx, http.MethodPost, "/api/counters", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateCounter applies a partial update.
func (c *Client) UpdateCounter(ctx context.Context, id string, patch models.CounterPatch) error {
	return c.call(ctx, http.MethodPatch, counterPath(id), patch, nil)
}

// IncrementCounter adds amount, which may be negative, to the stored count.
func (c *Client) IncrementCounter(ctx context.Context, id string, amount int64) error {
	in := struct {
		Amount int64 `json:"amount"`
	}{amount}
	return c.call(ctx, http.MethodPost, counterPath(id)+"/increment", in, nil)
}

// DeleteCounter soft-deletes a counter.
func (c *Client) DeleteCounter(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, counterPath(id), nil, nil)
}

// BatchUpdateCounters applies several partial updates atomically.
func (c *Client) BatchUpdateCounters(ctx context.Context, updates []models.CounterUpdate) error {
	in := struct {
		Updates []models.CounterUpdate `json:"updates"`
	}{updates}
	return c.call(ctx, http.MethodPost, "/api/counters/batch", in, nil)
}

// ReplaceCounters soft-deletes every active counter and stores counters instead.
func (c *Client) ReplaceCounters(ctx context.Context, counters []models.Counter) error {
	if counters == nil {
		counters = []models.Counter{}
	}
	in := struct {
		Counters []models.Counter `json:"counters"`
	}{counters}
	return c.call(ctx, http.MethodPut, "/api/counters", in, nil)
}

// FetchLabels returns the labels, newest first.
func (c *Client) FetchLabels(ctx context.Context) ([]models.Label, error) {
	return cachedGet(ctx, c, "labels?orderBy=createdAt+desc", "/api/labels", cloneLabels)
}

// CreateLabel stores a new label and returns its id.
func (c *Client) CreateLabel(ctx context.Context, label models.Label) (string, error) {
	var out createdResponse
	if err := c.call(ctx, http.MethodPost, "/api/labels", labelRequest{Name: label.Name, Color: label.Color}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateLabel applies a partial update.
func (c *Client) UpdateLabel(ctx context.Context, id string, patch models.LabelPatch) error {
	return c.call(ctx, http.MethodPatch, labelPath(id), patch, nil)
}

// DeleteLabel removes a label. Counters keep referencing its id.
func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, labelPath(id), nil, nil)
}

// GetPreferences returns the signed-in user's preferences.
func (c *Client) GetPreferences(ctx context.Context) (models.Preferences, error) {
	return cachedGet(ctx, c, "users/preferences", "/api/preferences", func(p models.Preferences) models.Preferences { return p })
}

// UpdatePreferences overwrites the signed-in user's preferences.
func (c *Client) UpdatePreferences(ctx context.Context, p models.Preferences) error {
	return c.call(ctx, http.MethodPut, "/api/preferences", p, nil)
}
