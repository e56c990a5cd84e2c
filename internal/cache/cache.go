package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/model"
)

// Cache defines the interface for caching external lookups
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "papercheck:v1:"

// CacheKey generates a namespaced cache key from a lookup key (DOI, title, claim text)
func CacheKey(namespace, key string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(key))))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache selected by configuration.
// A disabled cache is reported as (nil, nil); callers treat a nil Cache as "no caching".
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), nil
	case "layered", "disk":
		return NewLayeredCache(cfg.MemoryTTL, cfg.Directory, cfg.DiskTTL), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache requires redis_addr")
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DiskTTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, layered, redis)", cfg.Backend)
	}
}

// GetJSON looks up key and decodes it into dst. A nil cache always misses.
func GetJSON(c Cache, key string, dst any) bool {
	if c == nil {
		return false
	}
	data, found := c.Get(key)
	if !found {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON encodes value and stores it under key. A nil cache is a no-op.
func SetJSON(c Cache, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}
