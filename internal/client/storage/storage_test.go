package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophTally/internal/models"
)

func newFileStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	return New(NewFileBackend(path), nil), path
}

func newBadgerStorage(t *testing.T) *LocalStorage {
	t.Helper()
	b, err := OpenBadger("")
	require.NoError(t, err)
	ls := New(b, nil)
	t.Cleanup(func() { _ = ls.Close() })
	return ls
}

func TestLoad_KeyAbsent(t *testing.T) {
	ls, _ := newFileStorage(t)

	counters := ls.LoadCounters()
	require.NotNil(t, counters)
	assert.Empty(t, counters)
	assert.Empty(t, ls.LoadLabels())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	backends := map[string]*LocalStorage{
		"file":   func() *LocalStorage { ls, _ := newFileStorage(t); return ls }(),
		"badger": newBadgerStorage(t),
	}
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for name, ls := range backends {
		t.Run(name, func(t *testing.T) {
			counters := []models.Counter{
				{ID: "1", Name: "Push-ups", Count: 5, Labels: []string{"l1"}, CreatedAt: created, UpdatedAt: created},
				{ID: "2", Name: "Water", Count: -2, CreatedAt: created, UpdatedAt: created},
			}
			labels := []models.Label{{ID: "l1", Name: "health", Color: "#10b981", CreatedAt: created}}

			ls.SaveCounters(counters)
			ls.SaveLabels(labels)

			assert.Equal(t, counters, ls.LoadCounters())
			assert.Equal(t, labels, ls.LoadLabels())
		})
	}
}

func TestSave_OverwritesUnconditionally(t *testing.T) {
	ls, _ := newFileStorage(t)

	ls.SaveCounters([]models.Counter{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}})
	ls.SaveCounters([]models.Counter{{ID: "3", Name: "c"}})

	got := ls.LoadCounters()
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func TestLoad_MalformedTextYieldsEmptyList(t *testing.T) {
	ls, path := newFileStorage(t)
	require.NoError(t, ls.backend.Set(KeyCounters, "{not json"))

	assert.Empty(t, ls.LoadCounters())

	// the whole file being corrupt is swallowed too
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	assert.Empty(t, ls.LoadCounters())
	assert.Empty(t, ls.LoadLabels())
}

func TestSave_ReplacesCorruptFile(t *testing.T) {
	ls, path := newFileStorage(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	ls.SaveLabels([]models.Label{{ID: "l1", Name: "x"}})

	assert.Len(t, ls.LoadLabels(), 1)
}

func TestSaveCounters_NilStoredAsEmptyList(t *testing.T) {
	ls, _ := newFileStorage(t)
	ls.SaveCounters(nil)

	text, ok, err := ls.backend.Get(KeyCounters)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", text)
}

func TestDeviceID_GeneratedOnceAndPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	ls := New(NewFileBackend(path), nil)
	ls.now = func() time.Time { return time.UnixMilli(1700000000000) }

	id := ls.DeviceID()
	assert.True(t, strings.HasPrefix(id, "device_1700000000000_"), id)

	reopened := New(NewFileBackend(path), nil)
	assert.Equal(t, id, reopened.DeviceID())
}
