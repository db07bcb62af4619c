package figma

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Cache persists Figma responses on disk keyed by the SHA-256 of the request
// URL. Concurrent writers race benignly: each write lands via rename, so the
// last writer wins and readers never observe a partial entry.
type Cache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

type cacheEntry struct {
	URL      string    `json:"url"`
	StoredAt time.Time `json:"stored_at"`
	Data     []byte    `json:"data"`
}

// NewCache creates a cache rooted at dir. An empty dir disables caching.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{
		Dir: dir,
		TTL: ttl,
		now: time.Now,
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.Dir != ""
}

func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the cached body for url. Missing, unreadable and expired
// entries are all reported as absent.
func (c *Cache) Get(url string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.URL != url {
		return nil, false
	}
	if c.TTL > 0 && c.now().Sub(entry.StoredAt) > c.TTL {
		return nil, false
	}

	return entry.Data, true
}

// Put stores body for url.
func (c *Cache) Put(url string, body []byte) error {
	if !c.enabled() {
		return nil
	}

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{URL: url, StoredAt: c.now(), Data: body})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.Dir, ".entry-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, c.path(url)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
