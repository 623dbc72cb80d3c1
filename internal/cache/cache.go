// Package cache provides a content-addressed, TTL-bounded persistent store
// for analysis results. Caching is an optimization: storage failures never
// propagate, they degrade to a miss on read and a dropped write on put.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	apperrors "github.com/PentesterFlow/APIProfiler/internal/errors"
	"github.com/PentesterFlow/APIProfiler/internal/logger"
)

var bucketResults = []byte("results")

// openTimeout bounds how long an operation waits for the file lock held by
// another process sharing the same cache file.
const openTimeout = 5 * time.Second

// Config holds cache configuration.
type Config struct {
	// Dir is the cache directory. Empty selects the user cache directory,
	// falling back to a working-directory-relative location if that is not
	// writable.
	Dir string

	// Name is the cache file name without extension. Defaults to "results".
	Name string

	// TTL is the maximum entry age. Zero or negative disables caching:
	// every Get misses and Put is a no-op.
	TTL time.Duration

	Logger *logger.Logger
}

// Cache is a bbolt-backed result store keyed by content hash. The database
// is opened for the duration of a single operation and closed on every
// exit path, so concurrent processes sharing one cache file serialize on
// bbolt's file lock.
type Cache struct {
	path string
	ttl  time.Duration
	log  *logger.Logger
	now  func() time.Time
}

// entry is the stored representation of one cached result.
type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// New creates a cache using the directory resolution rules in Config.
func New(cfg Config) (*Cache, error) {
	if cfg.Name == "" {
		cfg.Name = "results"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	dir, err := resolveDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}

	return &Cache{
		path: filepath.Join(dir, cfg.Name+".db"),
		ttl:  cfg.TTL,
		log:  cfg.Logger.WithComponent("cache"),
		now:  time.Now,
	}, nil
}

// resolveDir picks the cache directory: explicit, else the user cache
// directory, else a working-directory fallback. The chosen directory is
// created and probed for writability.
func resolveDir(dir string) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}

	if userDir, err := os.UserCacheDir(); err == nil {
		candidate := filepath.Join(userDir, "apiprofiler")
		if err := os.MkdirAll(candidate, 0755); err == nil && writable(candidate) {
			return candidate, nil
		}
	}

	fallback := filepath.Join(".", ".cache", "apiprofiler")
	if err := os.MkdirAll(fallback, 0755); err != nil {
		return "", err
	}
	return fallback, nil
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// Key derives the content-addressed cache key for an evidence tuple:
// SHA-256 over the canonical JSON of (discovery_method, data). Map keys
// are sorted during marshaling, so logically identical inputs produce
// identical keys regardless of incidental ordering.
func Key(discoveryMethod string, data any) (string, error) {
	canonical, err := json.Marshal(struct {
		DiscoveryMethod string `json:"discovery_method"`
		Data            any    `json:"data"`
	}{discoveryMethod, data})
	if err != nil {
		return "", fmt.Errorf("failed to serialize cache key input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Get loads a fresh entry into out. It returns false on a miss, a stale
// entry, a disabled cache, or any storage failure.
func (c *Cache) Get(key string, out any) bool {
	if c.ttl <= 0 {
		return false
	}

	var found bool
	var stale bool
	err := c.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketResults)
			if b == nil {
				return nil
			}
			raw := b.Get([]byte(key))
			if raw == nil {
				return nil
			}

			var e entry
			if err := json.Unmarshal(raw, &e); err != nil {
				// Unreadable entries are purged like stale ones.
				stale = true
				return b.Delete([]byte(key))
			}
			if c.now().Sub(e.StoredAt) >= c.ttl {
				stale = true
				return b.Delete([]byte(key))
			}
			if err := json.Unmarshal(e.Data, out); err != nil {
				stale = true
				return b.Delete([]byte(key))
			}
			found = true
			return nil
		})
	})
	if err != nil {
		c.log.WithError(err).Warn("cache read failed, treating as miss")
		return false
	}
	if stale {
		c.log.CacheEvent("get", key, false)
		return false
	}
	c.log.CacheEvent("get", key, found)
	return found
}

// Put stores a value under key with the current timestamp. Failures are
// logged and swallowed.
func (c *Cache) Put(key string, value any) {
	if c.ttl <= 0 {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).Warn("cache write skipped: value not serializable")
		return
	}
	raw, err := json.Marshal(entry{StoredAt: c.now(), Data: data})
	if err != nil {
		c.log.WithError(err).Warn("cache write skipped: entry not serializable")
		return
	}

	err = c.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists(bucketResults)
			if err != nil {
				return err
			}
			return b.Put([]byte(key), raw)
		})
	})
	if err != nil {
		c.log.WithError(err).Warn("cache write failed, continuing without caching")
		return
	}
	c.log.CacheEvent("put", key, true)
}

// ClearStale removes every expired entry and reports how many were
// deleted.
func (c *Cache) ClearStale() (int, error) {
	removed := 0
	err := c.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketResults)
			if b == nil {
				return nil
			}

			var staleKeys [][]byte
			cursor := b.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				var e entry
				if err := json.Unmarshal(v, &e); err != nil || c.now().Sub(e.StoredAt) >= c.ttl {
					key := make([]byte, len(k))
					copy(key, k)
					staleKeys = append(staleKeys, key)
				}
			}
			for _, k := range staleKeys {
				if err := b.Delete(k); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clear stale entries: %w", err)
	}
	return removed, nil
}

// ClearAll removes every entry and reports how many were deleted.
func (c *Cache) ClearAll() (int, error) {
	removed := 0
	err := c.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketResults)
			if b == nil {
				return nil
			}
			removed = b.Stats().KeyN
			if err := tx.DeleteBucket(bucketResults); err != nil {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(bucketResults)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return removed, nil
}

// withDB opens the store for one operation and guarantees it is closed on
// every exit path.
func (c *Cache) withDB(fn func(*bolt.DB) error) error {
	db, err := bolt.Open(c.path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return apperrors.NewCacheIO("open", err)
	}
	defer db.Close()
	if err := fn(db); err != nil {
		return apperrors.NewCacheIO("access", err)
	}
	return nil
}
