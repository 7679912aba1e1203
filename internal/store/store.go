package store

import (
	"errors"
	"time"
)

// ErrNotIndexed is returned when a tenant has no persisted index.
var ErrNotIndexed = errors.New("tenant has no index")

// Store defines durable per-tenant persistence. Each instance is the sole
// owner of its tenants' data; caches hold derived read-only copies.
type Store interface {
	// Snapshot of raw per-page extracted text, replaced wholesale per build.
	WriteSnapshot(tenantID string, snap *Snapshot) error
	LoadSnapshot(tenantID string) (*Snapshot, error)

	// NewChunkWriter opens a streaming writer for a tenant's chunk index.
	// Records are persisted incrementally; nothing becomes visible to
	// readers until Commit. The writer enforces that every vector matches
	// the dimensionality of the first chunk written.
	NewChunkWriter(tenantID string) (ChunkWriter, error)

	// LoadChunks reads the full chunk set. Plain accessor, no caching.
	LoadChunks(tenantID string) ([]Chunk, error)

	// Product catalog, embedded and written in one pass.
	WriteProducts(tenantID string, products []Product) error
	LoadProducts(tenantID string) ([]Product, error)

	// Status of the last successful build.
	WriteStatus(tenantID string, status *Status) error
	LoadStatus(tenantID string) (*Status, error)

	// Sync checkpoint: stable item key -> content hash at last confirmed upload.
	LoadSyncState(tenantID string) (map[string]string, error)
	SaveSyncState(tenantID string, hashes map[string]string) error

	// ModTime returns the version of a tenant's persisted index, as the
	// latest modification time across the chunk and product records.
	// Returns ErrNotIndexed when neither exists.
	ModTime(tenantID string) (time.Time, error)
}

// ChunkWriter streams chunk records into a tenant's index.
type ChunkWriter interface {
	// Add persists one chunk record.
	Add(c Chunk) error

	// Count returns the number of chunks written so far.
	Count() int

	// Commit publishes the streamed records atomically, replacing any
	// previous chunk set.
	Commit() error

	// Discard abandons the stream, leaving the previous chunk set intact.
	// Safe to call after Commit.
	Discard() error
}
