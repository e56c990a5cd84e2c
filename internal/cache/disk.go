package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache persists lookup results across runs so a re-analysis of the same
// corpus skips Semantic Scholar, OpenAlex and Fact Check Tools round trips. Each
// CacheKey ("papercheck:v1:<namespace>:<sha256>") maps to one file named
// <namespace>_<sha256>.cache under dir, holding the payload and its expiry.
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache returns a cache rooted at dir; the directory is created lazily
// on the first Set.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl}
}

// diskRecord is the on-disk envelope around a cached SourceMetadata or
// review list payload
type diskRecord struct {
	Payload   []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get returns the payload for key. Unreadable, corrupt, or expired files are
// misses; expired files are removed.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	file := c.path(key)
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}

	var rec diskRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if !time.Now().Before(rec.ExpiresAt) {
		_ = os.Remove(file)
		return nil, false
	}
	return rec.Payload, true
}

// Set writes payload under key. A zero ttl uses the cache-wide TTL. The file
// is written to a temp name and renamed so concurrent batch workers never see
// a partial record.
func (c *DiskCache) Set(key string, payload []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(diskRecord{Payload: payload, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", c.dir, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

// Delete removes key; a key that was never stored is not an error
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes the whole cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path maps a key to its file, dropping the fixed "papercheck:v1:" prefix and
// replacing ':' which is not portable in file names
func (c *DiskCache) path(key string) string {
	name := strings.TrimPrefix(key, keyPrefix)
	return filepath.Join(c.dir, strings.ReplaceAll(name, ":", "_")+".cache")
}
