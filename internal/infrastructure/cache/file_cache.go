package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

// document is the on-disk layout: entries by key plus lifetime counters.
type document struct {
	Entries map[string]domain.CacheEntry `json:"entries"`
	Hits    int                          `json:"hits"`
	Misses  int                          `json:"misses"`
}

// FileCache keeps generated responses in one JSON document keyed by
// hash(normalized query, model). Expired entries are evicted lazily on lookup.
type FileCache struct {
	path       string
	ttlSeconds int
	maxEntries int
	logger     ports.Logger
	now        func() time.Time

	mu     sync.Mutex
	loaded bool
	doc    document
}

// Option customises a FileCache.
type Option func(*FileCache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) { c.now = now }
}

// WithMaxEntries bounds the number of stored entries; 0 disables the bound.
func WithMaxEntries(n int) Option {
	return func(c *FileCache) { c.maxEntries = n }
}

// WithLogger attaches a logger for recovery warnings.
func WithLogger(l ports.Logger) Option {
	return func(c *FileCache) { c.logger = l }
}

// NewFileCache returns a cache backed by path. An empty path uses
// ~/.config/nlsh/cache.json.
func NewFileCache(path string, ttlSeconds int, opts ...Option) *FileCache {
	if path == "" {
		path = filesystem.StatePath(domain.CacheFileName)
	}
	if ttlSeconds <= 0 {
		ttlSeconds = domain.DefaultCacheTTLSeconds
	}
	c := &FileCache{
		path:       path,
		ttlSeconds: ttlSeconds,
		maxEntries: domain.DefaultMaxCacheEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key hashes the normalized query with the model identifier.
func Key(query, model string) string {
	sum := sha256.Sum256([]byte(normalize(query) + "\x00" + model))
	return hex.EncodeToString(sum[:])
}

// normalize lowercases and collapses whitespace.
func normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Get returns a fresh cached response. Expired entries are evicted and count as misses.
func (c *FileCache) Get(query, model string) (domain.CommandResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	key := Key(query, model)
	entry, ok := c.doc.Entries[key]
	if ok && entry.IsExpired(c.now()) {
		delete(c.doc.Entries, key)
		ok = false
	}
	if ok {
		c.doc.Hits++
	} else {
		c.doc.Misses++
	}
	c.persist()
	if !ok {
		return domain.CommandResponse{}, false
	}
	return entry.Response(), true
}

// Set stores resp under (query, model) with the configured TTL.
func (c *FileCache) Set(query, model string, resp domain.CommandResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	c.doc.Entries[Key(query, model)] = domain.NewCacheEntry(resp, c.now(), c.ttlSeconds)
	c.evictIfNeeded()
	return filesystem.WriteJSON(c.path, c.doc)
}

// Clear empties the cache, counters included.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = document{Entries: make(map[string]domain.CacheEntry)}
	c.loaded = true
	return filesystem.WriteJSON(c.path, c.doc)
}

// Stats reports hit/miss counters and entry count.
func (c *FileCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return domain.NewCacheStats(c.doc.Hits, c.doc.Misses, len(c.doc.Entries))
}

// TTLSeconds returns the validity window applied to new entries.
func (c *FileCache) TTLSeconds() int {
	return c.ttlSeconds
}

// Path exposes the cache document path.
func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) ensureLoaded() {
	if c.loaded {
		return
	}
	c.loaded = true
	var doc document
	if _, err := filesystem.ReadJSON(c.path, &doc); err != nil {
		c.warn("cache document unreadable, starting empty", err)
		doc = document{}
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]domain.CacheEntry)
	}
	c.doc = doc
}

// persist writes counters after a lookup. Failures only cost statistics.
func (c *FileCache) persist() {
	if err := filesystem.WriteJSON(c.path, c.doc); err != nil {
		c.warn("cache write failed", err)
	}
}

func (c *FileCache) evictIfNeeded() {
	if c.maxEntries <= 0 || len(c.doc.Entries) <= c.maxEntries {
		return
	}
	type aged struct {
		key string
		at  time.Time
	}
	infos := make([]aged, 0, len(c.doc.Entries))
	for k, e := range c.doc.Entries {
		infos = append(infos, aged{key: k, at: e.Timestamp})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].at.Before(infos[j].at) })
	for len(infos) > c.maxEntries {
		delete(c.doc.Entries, infos[0].key)
		infos = infos[1:]
	}
}

func (c *FileCache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, map[string]interface{}{"path": c.path, "error": err.Error()})
	}
}

var _ ports.CacheRepository = (*FileCache)(nil)
