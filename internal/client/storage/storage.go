// Package storage keeps the shell's local copy of counters and labels in a
// key-value backend as serialized JSON text.
//
// Reads never fail upward: a missing key or a value that does not decode
// yields an empty list. Writes overwrite the stored value unconditionally.
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/models"
)

// LocalStorage is the local persistence adapter.
type LocalStorage struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// New wraps backend. A nil logger disables logging.
func New(backend Backend, log *zap.Logger) *LocalStorage {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalStorage{backend: backend, log: log, now: time.Now}
}

// Save serializes v and overwrites the value stored under key.
func (ls *LocalStorage) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := ls.backend.Set(key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Load decodes the value under key into dst. It reports false when the key is
// absent or the text does not decode; dst is left untouched in both cases.
func (ls *LocalStorage) Load(key string, dst any) bool {
	ls.mu.Lock()
	text, ok, err := ls.backend.Get(key)
	ls.mu.Unlock()
	if err != nil {
		ls.log.Debug("local storage read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		ls.log.Debug("local storage value discarded", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// LoadCounters returns the stored counters or an empty list.
func (ls *LocalStorage) LoadCounters() []models.Counter {
	var items []models.Counter
	if !ls.Load(KeyCounters, &items) || items == nil {
		return []models.Counter{}
	}
	return items
}

// SaveCounters overwrites the stored counters. Failures are logged, not returned.
func (ls *LocalStorage) SaveCounters(items []models.Counter) {
	if items == nil {
		items = []models.Counter{}
	}
	if err := ls.Save(KeyCounters, items); err != nil {
		ls.log.Warn("save counters failed", zap.Error(err))
	}
}

// LoadLabels returns the stored labels or an empty list.
func (ls *LocalStorage) LoadLabels() []models.Label {
	var items []models.Label
	if !ls.Load(KeyLabels, &items) || items == nil {
		return []models.Label{}
	}
	return items
}

// SaveLabels overwrites the stored labels. Failures are logged, not returned.
func (ls *LocalStorage) SaveLabels(items []models.Label) {
	if items == nil {
		items = []models.Label{}
	}
	if err := ls.Save(KeyLabels, items); err != nil {
		ls.log.Warn("save labels failed", zap.Error(err))
	}
}

// DeviceID returns the stored device identifier, generating and storing one on first use.
func (ls *LocalStorage) DeviceID() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if id, ok, err := ls.backend.Get(KeyDeviceID); err == nil && ok && id != "" {
		return id
	}
	suffix, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 11)
	if err != nil {
		suffix = strconv.FormatInt(ls.now().UnixNano(), 36)
	}
	id := "device_" + strconv.FormatInt(ls.now().UnixMilli(), 10) + "_" + suffix
	if err := ls.backend.Set(KeyDeviceID, id); err != nil {
		ls.log.Warn("save device id failed", zap.Error(err))
	}
	return id
}

// Close closes the backend.
func (ls *LocalStorage) Close() error {
	return ls.backend.Close()
}
