package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// File names inside a tenant directory.
const (
	snapshotFile = "snapshot.json"
	chunksFile   = "chunks.jsonl"
	productsFile = "products.json"
	statusFile   = "status.json"
	syncFile     = "sync.json"
)

// FileStore persists each tenant under its own directory:
//
//	<dataDir>/tenants/<tenant>/{snapshot.json, chunks.jsonl, products.json, status.json, sync.json}
//
// Writes go to a temporary file in the same directory and are published by
// rename, so concurrent readers never observe a partially written record.
type FileStore struct {
	dataDir string
}

// NewFileStore creates a FileStore rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "tenants"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// SanitizeTenantID reduces an opaque tenant identifier to a filesystem-safe
// token: lowercased, with anything outside [a-z0-9._-] replaced by '-'.
// An identifier that sanitizes to nothing maps to "default".
func SanitizeTenantID(tenantID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(tenantID)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	id := strings.Trim(b.String(), ".-")
	if id == "" {
		return "default"
	}
	return id
}

// tenantDir returns the directory for a tenant, creating it on demand.
// Tenants come into being on first index build or product upload.
func (s *FileStore) tenantDir(tenantID string) (string, error) {
	dir := filepath.Join(s.dataDir, "tenants", SanitizeTenantID(tenantID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tenant dir: %w", err)
	}
	return dir, nil
}

// tenantPath returns the path of a record file without creating anything.
func (s *FileStore) tenantPath(tenantID, name string) string {
	return filepath.Join(s.dataDir, "tenants", SanitizeTenantID(tenantID), name)
}

// writeJSON marshals v and publishes it atomically at path.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON unmarshals path into v. Missing files map to notFound.
func readJSON(path string, v any, notFound error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteSnapshot replaces the tenant's site snapshot.
func (s *FileStore) WriteSnapshot(tenantID string, snap *Snapshot) error {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, snapshotFile), snap)
}

// LoadSnapshot reads the tenant's site snapshot.
func (s *FileStore) LoadSnapshot(tenantID string) (*Snapshot, error) {
	var snap Snapshot
	if err := readJSON(s.tenantPath(tenantID, snapshotFile), &snap, ErrNotIndexed); err != nil {
		return nil, err
	}
	return &snap, nil
}

// fileChunkWriter streams JSONL chunk records to a temporary file and
// publishes by rename on Commit.
type fileChunkWriter struct {
	tmpPath   string
	finalPath string
	f         *os.File
	w         *bufio.Writer
	enc       *json.Encoder
	count     int
	dims      int
	done      bool
}

// NewChunkWriter opens a streaming writer for the tenant's chunk index.
func (s *FileStore) NewChunkWriter(tenantID string) (ChunkWriter, error) {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(dir, chunksFile)
	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk stream: %w", err)
	}

	w := bufio.NewWriter(f)
	return &fileChunkWriter{
		tmpPath:   tmpPath,
		finalPath: finalPath,
		f:         f,
		w:         w,
		enc:       json.NewEncoder(w),
	}, nil
}

// Add writes one chunk record to the stream.
func (cw *fileChunkWriter) Add(c Chunk) error {
	if cw.done {
		return errors.New("chunk writer is closed")
	}
	if len(c.Vector) == 0 {
		return errors.New("chunk has no embedding vector")
	}

	// The first chunk's dimensionality is authoritative for the tenant.
	if cw.count == 0 {
		cw.dims = len(c.Vector)
	} else if len(c.Vector) != cw.dims {
		return fmt.Errorf("chunk vector has %d dimensions, index has %d", len(c.Vector), cw.dims)
	}

	if err := cw.enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write chunk record: %w", err)
	}
	cw.count++
	return nil
}

// Count returns the number of chunks written so far.
func (cw *fileChunkWriter) Count() int {
	return cw.count
}

// Commit flushes the stream and publishes it over the previous chunk set.
func (cw *fileChunkWriter) Commit() error {
	if cw.done {
		return errors.New("chunk writer is closed")
	}
	cw.done = true

	if err := cw.w.Flush(); err != nil {
		cw.f.Close()
		os.Remove(cw.tmpPath)
		return fmt.Errorf("failed to flush chunk stream: %w", err)
	}
	if err := cw.f.Close(); err != nil {
		os.Remove(cw.tmpPath)
		return fmt.Errorf("failed to close chunk stream: %w", err)
	}
	if err := os.Rename(cw.tmpPath, cw.finalPath); err != nil {
		os.Remove(cw.tmpPath)
		return fmt.Errorf("failed to publish chunk index: %w", err)
	}
	return nil
}

// Discard abandons the stream, leaving any previous chunk set intact.
func (cw *fileChunkWriter) Discard() error {
	if cw.done {
		return nil
	}
	cw.done = true
	cw.f.Close()
	return os.Remove(cw.tmpPath)
}

// LoadChunks reads the tenant's full chunk set, streaming one record at a
// time off disk.
func (s *FileStore) LoadChunks(tenantID string) ([]Chunk, error) {
	path := s.tenantPath(tenantID, chunksFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotIndexed
		}
		return nil, fmt.Errorf("failed to open chunk index: %w", err)
	}
	defer f.Close()

	var chunks []Chunk
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var c Chunk
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse chunk record %d: %w", len(chunks), err)
		}
		chunks = append(chunks, c)
	}

	log.Debug("Loaded chunk index", "tenant", SanitizeTenantID(tenantID), "chunks", len(chunks))
	return chunks, nil
}

// WriteProducts replaces the tenant's product catalog.
func (s *FileStore) WriteProducts(tenantID string, products []Product) error {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return err
	}
	if products == nil {
		products = []Product{}
	}
	return writeJSON(filepath.Join(dir, productsFile), products)
}

// LoadProducts reads the tenant's product catalog. A tenant with an index
// but no catalog yields an empty slice, not an error.
func (s *FileStore) LoadProducts(tenantID string) ([]Product, error) {
	var products []Product
	err := readJSON(s.tenantPath(tenantID, productsFile), &products, ErrNotIndexed)
	if errors.Is(err, ErrNotIndexed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

// WriteStatus replaces the tenant's build status record.
func (s *FileStore) WriteStatus(tenantID string, status *Status) error {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, statusFile), status)
}

// LoadStatus reads the tenant's build status record.
func (s *FileStore) LoadStatus(tenantID string) (*Status, error) {
	var status Status
	if err := readJSON(s.tenantPath(tenantID, statusFile), &status, ErrNotIndexed); err != nil {
		return nil, err
	}
	return &status, nil
}

// LoadSyncState reads the tenant's sync checkpoint. No checkpoint yet
// yields an empty map.
func (s *FileStore) LoadSyncState(tenantID string) (map[string]string, error) {
	hashes := make(map[string]string)
	err := readJSON(s.tenantPath(tenantID, syncFile), &hashes, ErrNotIndexed)
	if errors.Is(err, ErrNotIndexed) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// SaveSyncState replaces the tenant's sync checkpoint.
func (s *FileStore) SaveSyncState(tenantID string, hashes map[string]string) error {
	dir, err := s.tenantDir(tenantID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, syncFile), hashes)
}

// ModTime returns the latest modification time across the tenant's chunk
// and product records, or ErrNotIndexed when neither exists.
func (s *FileStore) ModTime(tenantID string) (time.Time, error) {
	var latest time.Time
	found := false
	for _, name := range []string{chunksFile, productsFile} {
		info, err := os.Stat(s.tenantPath(tenantID, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return time.Time{}, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		found = true
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	if !found {
		return time.Time{}, ErrNotIndexed
	}
	return latest, nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
