package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/embeddings"
)

// maxQueryKeyLen caps the cache key so pathological queries cannot bloat
// the key space.
const maxQueryKeyLen = 256

type queryEntry struct {
	vector     []float32
	createdAt  time.Time
	lastAccess time.Time
}

// QueryCache maps normalized query strings to unit-normalized embeddings.
// Validity is an absolute TTL from creation; eviction is LRU by last
// access. The two bounds are independent: a full cache may evict entries
// whose TTL has not expired, and an entry within its TTL is served however
// cold it is.
type QueryCache struct {
	mu         sync.Mutex
	embedder   embeddings.Service
	ttl        time.Duration
	maxEntries int
	clock      Clock
	entries    map[string]*queryEntry
}

// NewQueryCache creates a query embedding cache in front of embedder.
// A nil clock uses time.Now.
func NewQueryCache(embedder embeddings.Service, maxEntries int, ttl time.Duration, clock Clock) *QueryCache {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &QueryCache{
		embedder:   embedder,
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*queryEntry),
	}
}

// queryKey normalizes a query into its cache key: trimmed, lowercased,
// length-capped.
func queryKey(query string) string {
	key := strings.ToLower(strings.TrimSpace(query))
	if len(key) > maxQueryKeyLen {
		key = key[:maxQueryKeyLen]
	}
	return key
}

// EmbedQuery returns the unit-normalized embedding for a query, serving a
// cached vector when one exists and its TTL has not lapsed. A hit
// refreshes lastAccess only; createdAt is fixed so the TTL never slides.
func (c *QueryCache) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := queryKey(query)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		now := c.clock()
		if now.Sub(entry.createdAt) < c.ttl {
			entry.lastAccess = now
			vec := entry.vector
			c.mu.Unlock()
			return vec, nil
		}
	}
	c.mu.Unlock()

	// Miss or expired: call the provider outside the lock so one slow
	// embedding does not serialize unrelated queries. Concurrent misses on
	// the same key may both embed; the last write wins harmlessly.
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	embeddings.Normalize(vector)

	now := c.clock()
	c.mu.Lock()
	c.entries[key] = &queryEntry{
		vector:     vector,
		createdAt:  now,
		lastAccess: now,
	}
	c.evictIfNeeded()
	c.mu.Unlock()

	log.Debug("Query cache filled", "key", key)
	return vector, nil
}

// evictIfNeeded drops the entry with the oldest lastAccess when the cache
// has grown past capacity. Caller holds the lock.
func (c *QueryCache) evictIfNeeded() {
	if len(c.entries) <= c.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of cached queries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
