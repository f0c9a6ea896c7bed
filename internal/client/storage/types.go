package storage

// Keys under which the shell keeps its local copy.
const (
	KeyCounters = "counterAppData"
	KeyLabels   = "counterAppLabels"
	KeyDeviceID = "deviceId"
)

// Backend is a string key-value store holding serialized text values.
type Backend interface {
	// Get returns the stored text and whether the key exists.
	Get(key string) (string, bool, error)
	// Set overwrites the value stored under key.
	Set(key, value string) error
	// Close releases the backend.
	Close() error
}
