package quote

import (
	"sync"
	"time"

	"github.com/unikron/shieldswap/pkg/models"
)

// DefaultCacheSize bounds the number of quotes a Cache holds
const DefaultCacheSize = 4096

// Cache keeps recently served quotes so identical requests return identical terms.
// Expired entries are dropped on every write and the size never exceeds its bound.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	size    int
	now     func() time.Time
}

type cacheEntry struct {
	quote    models.SwapQuote
	storedAt time.Time
}

// NewCache creates a quote cache holding entries for ttl
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWithSize(ttl, DefaultCacheSize)
}

// NewCacheWithSize creates a quote cache holding at most size entries
func NewCacheWithSize(ttl time.Duration, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		size:    size,
		now:     time.Now,
	}
}

// Get returns a copy of the quote stored under key while it is fresh
func (c *Cache) Get(key string) (*models.SwapQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.staleLocked(entry, c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return copyQuote(&entry.quote), true
}

// Set stores a copy of q under key
func (c *Cache) Set(key string, q *models.SwapQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.size {
		c.evictLocked(now)
	}
	c.entries[key] = cacheEntry{quote: *copyQuote(q), storedAt: now}
}

// evictLocked drops stale entries and, when still full, the oldest one
func (c *Cache) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if c.staleLocked(e, now) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	if len(c.entries) >= c.size && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) staleLocked(e cacheEntry, now time.Time) bool {
	return now.Sub(e.storedAt) > c.ttl
}

func copyQuote(q *models.SwapQuote) *models.SwapQuote {
	c := *q
	c.Route = append([]string(nil), q.Route...)
	return &c
}
