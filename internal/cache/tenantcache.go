// Package cache holds the in-process performance caches: decoded tenant
// vectors and query embeddings. Correctness never depends on either; both
// are bounded, invalidated derivations of the durable store.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/embeddings"
	"github.com/sitechat-ai/sitechat/internal/store"
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// TenantData is an immutable snapshot of a tenant's decoded index with
// unit-normalized vectors. Published snapshots are never mutated, so
// concurrent readers need no coordination.
type TenantData struct {
	Chunks   []store.Chunk
	Products []store.Product
}

type tenantEntry struct {
	modTime    time.Time
	lastAccess time.Time
	data       *TenantData
}

// TenantCache keeps the most recently used tenants' decoded vectors,
// validated against the backing store's modification time and evicted LRU
// when more than maxTenants are cached.
type TenantCache struct {
	mu         sync.Mutex
	store      store.Store
	maxTenants int
	clock      Clock
	entries    map[string]*tenantEntry
}

// NewTenantCache creates a tenant vector cache over st. A nil clock uses
// time.Now.
func NewTenantCache(st store.Store, maxTenants int, clock Clock) *TenantCache {
	if maxTenants <= 0 {
		maxTenants = 20
	}
	if clock == nil {
		clock = time.Now
	}
	return &TenantCache{
		store:      st,
		maxTenants: maxTenants,
		clock:      clock,
		entries:    make(map[string]*tenantEntry),
	}
}

// Get returns the tenant's decoded data, serving the cached snapshot when
// its recorded store modification time still matches, and reloading from
// the store otherwise. Returns store.ErrNotIndexed for unknown tenants.
func (c *TenantCache) Get(tenantID string) (*TenantData, error) {
	id := store.SanitizeTenantID(tenantID)

	modTime, err := c.store.ModTime(id)
	if err != nil {
		if errors.Is(err, store.ErrNotIndexed) {
			// Drop any cached copy of a since-deleted index.
			c.Invalidate(id)
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[id]; ok && entry.modTime.Equal(modTime) {
		entry.lastAccess = c.clock()
		return entry.data, nil
	}

	data, err := c.load(id)
	if err != nil {
		return nil, err
	}

	now := c.clock()
	c.entries[id] = &tenantEntry{
		modTime:    modTime,
		lastAccess: now,
		data:       data,
	}
	c.evictIfNeeded()

	log.Debug("Tenant cache filled", "tenant", id, "chunks", len(data.Chunks), "products", len(data.Products))
	return data, nil
}

// load reads and normalizes a tenant's index from the store.
func (c *TenantCache) load(id string) (*TenantData, error) {
	chunks, err := c.store.LoadChunks(id)
	if err != nil && !errors.Is(err, store.ErrNotIndexed) {
		return nil, err
	}
	products, err := c.store.LoadProducts(id)
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		embeddings.Normalize(chunks[i].Vector)
	}
	for i := range products {
		embeddings.Normalize(products[i].Vector)
	}

	return &TenantData{Chunks: chunks, Products: products}, nil
}

// evictIfNeeded drops the least-recently-used entry when the cache has
// grown past capacity. Insertions happen one at a time, so a single
// eviction restores the bound.
func (c *TenantCache) evictIfNeeded() {
	if len(c.entries) <= c.maxTenants {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, entry := range c.entries {
		if oldestID == "" || entry.lastAccess.Before(oldest) {
			oldestID = id
			oldest = entry.lastAccess
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
		log.Debug("Evicted tenant from cache", "tenant", oldestID)
	}
}

// Invalidate drops the cached entry for a tenant. Index builds call this
// after publishing a new index.
func (c *TenantCache) Invalidate(tenantID string) {
	id := store.SanitizeTenantID(tenantID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of cached tenants.
func (c *TenantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
