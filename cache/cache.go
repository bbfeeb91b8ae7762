// Package cache memoizes probe results keyed by (probe, model, config)
// with per-entry TTL and LRU eviction.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/zero-day-ai/scanner/types"
)

const (
	// DefaultMaxSize bounds the number of cached results.
	DefaultMaxSize = 1000

	// DefaultTTL is the lifetime of a cached result.
	DefaultTTL = time.Hour
)

// Key builds the stable cache key for a probe execution. The model config
// is canonicalized by sorting keys and dropping secret-like entries before
// hashing, so the same logical request always maps to the same key and no
// secret material ever reaches the digest.
func Key(probeName, modelName string, modelType types.ModelType, modelConfig map[string]any) string {
	clean := types.SanitizeModelConfig(modelConfig)

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(probeName))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(modelType))
	h.Write([]byte{0})
	for _, k := range keys {
		v, _ := json.Marshal(clean[k])
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write(v)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	key       string
	result    *types.ProbeResult
	expiresAt time.Time
}

// Stats reports the cache's current occupancy and effectiveness.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	TTL     float64 `json:"ttl_seconds"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// ResultCache is a TTL + LRU cache of probe results, safe for concurrent
// use.
type ResultCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	hits    int64
	misses  int64
	now     func() time.Time
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithMaxSize sets the eviction bound.
func WithMaxSize(n int) Option {
	return func(c *ResultCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets the per-entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// New creates a ResultCache.
func New(opts ...Option) *ResultCache {
	c := &ResultCache{
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for key, if present and unexpired.
func (c *ResultCache) Get(key string) (*types.ProbeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.removeLocked(el)
		c.misses++
		return nil, false
	}
	c.lru.MoveToFront(el)
	c.hits++
	return e.result, true
}

// Set stores a result under key, evicting the least recently used entry
// when the cache is full.
func (c *ResultCache) Set(key string, result *types.ProbeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.result = result
		e.expiresAt = c.now().Add(c.ttl)
		c.lru.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	el := c.lru.PushFront(&entry{
		key:       key,
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = el
}

// Delete removes a key.
func (c *ResultCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// Clear drops every entry and resets hit/miss counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.hits = 0
	c.misses = 0
}

// Stats returns current cache statistics.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		TTL:     c.ttl.Seconds(),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *ResultCache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(el)
}
