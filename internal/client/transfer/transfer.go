// Package transfer exports the counter list to a JSON document and imports it back.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/atinyakov/GophTally/internal/models"
)

// Document envelope constants.
const (
	FormatVersion = "1.0"
	AppName       = "Counter App"
)

var (
	// ErrInvalidFormat is returned when the document has no "counters" list.
	ErrInvalidFormat = errors.New("invalid file format")
	// ErrNoValidCounters is returned when every entry was filtered out.
	ErrNoValidCounters = errors.New("no valid counter data found")
)

// Document is the exported file layout.
type Document struct {
	Counters  []models.Counter `json:"counters"`
	Version   string           `json:"version"`
	Timestamp string           `json:"timestamp"`
	App       string           `json:"app"`
}

// FileName names an export taken at now.
func FileName(now time.Time) string {
	return "counter_data_" + now.UTC().Format("2006-01-02") + ".json"
}

// Export writes counters as an indented document.
func Export(w io.Writer, counters []models.Counter, now time.Time) error {
	if counters == nil {
		counters = []models.Counter{}
	}
	doc := Document{
		Counters:  counters,
		Version:   FormatVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		App:       AppName,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportFile writes the document into dir under FileName(now) and returns its path.
func ExportFile(dir string, counters []models.Counter, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Export(f, counters, now); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	return path, nil
}

// Import parses a document and returns its valid counters.
// Entries whose id or name is not a string, or whose count is not an integer
// within int64 range, are dropped silently.
func Import(r io.Reader) ([]models.Counter, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	list, ok := raw["counters"]
	if !ok {
		return nil, ErrInvalidFormat
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(list, &entries); err != nil || entries == nil {
		return nil, ErrInvalidFormat
	}

	counters := make([]models.Counter, 0, len(entries))
	for _, entry := range entries {
		if c, ok := decodeEntry(entry); ok {
			counters = append(counters, c)
		}
	}
	if len(counters) == 0 {
		return nil, ErrNoValidCounters
	}
	return counters, nil
}

// ImportFile reads a document from path.
func ImportFile(path string) ([]models.Counter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f)
}

func decodeEntry(entry json.RawMessage) (models.Counter, bool) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(entry))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return models.Counter{}, false
	}

	id, ok := fields["id"].(string)
	if !ok {
		return models.Counter{}, false
	}
	name, ok := fields["name"].(string)
	if !ok {
		// older exports stored the display name under "label"
		if _, present := fields["name"]; present {
			return models.Counter{}, false
		}
		if name, ok = fields["label"].(string); !ok {
			return models.Counter{}, false
		}
	}
	count, ok := parseCount(fields["count"])
	if !ok {
		return models.Counter{}, false
	}

	c := models.Counter{ID: id, Name: name, Count: count, IsActive: true}
	if desc, ok := fields["description"].(string); ok {
		c.Description = desc
	}
	if labels, ok := fields["labels"].([]any); ok {
		ids := make([]string, 0, len(labels))
		for _, l := range labels {
			if s, ok := l.(string); ok {
				ids = append(ids, s)
			}
		}
		c.Labels = models.NormalizeLabels(ids)
	}
	c.CreatedAt = parseTime(fields["createdAt"])
	c.UpdatedAt = parseTime(fields["updatedAt"])
	return c, true
}

// parseCount accepts integral JSON numbers that fit in int64. Exponent forms
// such as 1e3 are taken when they denote an exact integer.
func parseCount(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
