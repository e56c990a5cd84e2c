package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps lookup results for the lifetime of one process. Keys are
// CacheKey values ("papercheck:v1:<namespace>:<sha256>"); values are the JSON
// encoding of a resolved *model.SourceMetadata ("citation" namespace) or of a
// claim's []model.Review ("factcheck" namespace).
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache returns a cache whose entries live for ttl unless Set says
// otherwise. Expired entries are swept every sweep interval.
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, sweep)}
}

// Get returns the stored payload; non-byte values count as a miss
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	payload, ok := v.([]byte)
	return payload, ok
}

// Set stores payload under key. A zero ttl falls back to the cache-wide TTL.
func (c *MemoryCache) Set(key string, payload []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.entries.Set(key, payload, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear drops every lookup result, across all namespaces
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}
