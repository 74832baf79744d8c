package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FreshnessWindow is how long a cached response stays valid. At or past
// this age an entry is logically absent and gets deleted on the next
// observed access.
const FreshnessWindow = 300 * time.Second

const entryFileExt = ".json"

// Entry is the persisted snapshot of one prior call. Query is kept for
// provenance only; lookup goes through the hash.
type Entry struct {
	Query     json.RawMessage `json:"query"`
	Response  json.RawMessage `json:"response"`
	Timestamp time.Time       `json:"timestamp"`
	QueryHash string          `json:"query_hash"`
}

// Info reports cache observability data. TotalEntries includes stale
// entries that have not been pruned yet.
type Info struct {
	TotalEntries int    `json:"total_entries"`
	Location     string `json:"location"`
}

// Cache is a content-addressed response cache, one file per query hash.
// Reads and writes are best-effort: storage failures surface as misses
// or no-ops, never as errors to the caller. Swallowed failures go to
// the diagnostic logger at debug level.
type Cache struct {
	dir string
	log *logrus.Logger
	now func() time.Time
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".plausctl", "cache"), nil
}

// New creates a cache rooted at dir, creating it if needed. A nil
// logger disables diagnostics.
func New(dir string, log *logrus.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Cache{dir: dir, log: log, now: time.Now}, nil
}

// Get returns the cached response for key if a fresh entry exists.
// A stale entry is deleted as a side effect and reported as a miss, as
// is any unreadable or corrupt entry.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	path := c.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).Debug("cache read failed, treating as miss")
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.WithError(err).Debug("corrupt cache entry, treating as miss")
		c.remove(path)
		return nil, false
	}

	if c.now().Sub(entry.Timestamp) > FreshnessWindow {
		c.remove(path)
		return nil, false
	}

	return entry.Response, true
}

// Set stores a response under key, overwriting any previous entry.
// Write failures are swallowed; a failed cache write must not fail the
// query that produced the response.
func (c *Cache) Set(key string, queryJSON, responseJSON json.RawMessage) {
	entry := Entry{
		Query:     queryJSON,
		Response:  responseJSON,
		Timestamp: c.now(),
		QueryHash: key,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.log.WithError(err).Debug("failed to marshal cache entry")
		return
	}

	// Write-temp-then-rename keeps a racing reader from ever observing
	// a partial entry.
	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		c.log.WithError(err).Debug("cache write failed")
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		c.remove(tmpPath)
		c.log.WithError(err).Debug("cache write failed")
		return
	}
	if err := tmp.Close(); err != nil {
		c.remove(tmpPath)
		c.log.WithError(err).Debug("cache write failed")
		return
	}
	if err := os.Rename(tmpPath, c.entryPath(key)); err != nil {
		c.remove(tmpPath)
		c.log.WithError(err).Debug("cache write failed")
	}
}

// Clear removes every entry unconditionally.
func (c *Cache) Clear() error {
	names, err := c.entryFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache entry %s: %w", name, err)
		}
	}
	return nil
}

// Prune deletes every entry older than the freshness window and
// returns the number removed. Unlike Get's lazy eviction this is an
// eager sweep, usable as a maintenance operation.
func (c *Cache) Prune() int {
	names, err := c.entryFiles()
	if err != nil {
		c.log.WithError(err).Debug("cache prune scan failed")
		return 0
	}

	removed := 0
	for _, name := range names {
		path := filepath.Join(c.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			// Corrupt entries count as stale.
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}
		if c.now().Sub(entry.Timestamp) > FreshnessWindow {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed
}

// Info reports the entry count (stale entries included) and location.
func (c *Cache) Info() Info {
	names, err := c.entryFiles()
	if err != nil {
		c.log.WithError(err).Debug("cache info scan failed")
	}
	return Info{TotalEntries: len(names), Location: c.dir}
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryFileExt)
}

func (c *Cache) entryFiles() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryFileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (c *Cache) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.WithError(err).Debug("cache delete failed")
	}
}
