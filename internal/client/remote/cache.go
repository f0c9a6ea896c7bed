package remote

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is how long a cached read stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cache memoizes read results by query signature. Writes do not invalidate it;
// it is only cleared wholesale. Entries expire ttl after they were stored, reads
// do not extend them.
type Cache struct {
	items *ttlcache.Cache[string, any]
}

// NewCache returns an empty cache with the given ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: ttlcache.New[string, any](
			ttlcache.WithTTL[string, any](ttl),
			ttlcache.WithDisableTouchOnHit[string, any](),
		),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key.
func (c *Cache) Set(key string, value any) {
	c.items.Set(key, value, ttlcache.DefaultTTL)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.items.DeleteAll()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.items.Len()
}
