// Package catalog synchronizes tenant product catalogs incrementally,
// uploading only items whose canonical content hash has changed.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/store"
)

// fieldSep separates canonical fields in the hash input so adjacent
// values cannot collide ("ab"+"c" vs "a"+"bc").
const fieldSep = "\x1f"

// Hash computes the canonical content hash of a product. Exactly the
// catalog-visible fields participate; embedding vectors and any other
// bookkeeping never affect change detection.
func Hash(p store.Product) string {
	canonical := strings.Join([]string{
		p.Name,
		p.Description,
		p.URL,
		p.Price,
		p.Currency,
		p.Image,
		p.SKU,
		p.Brand,
	}, fieldSep)
	return fmt.Sprintf("%016x", xxhash.Sum64String(canonical))
}

// Key returns the stable identity used to track an item across syncs:
// SKU when present, else URL, else the lowercased name.
func Key(p store.Product) string {
	if p.SKU != "" {
		return "sku:" + p.SKU
	}
	if p.URL != "" {
		return "url:" + p.URL
	}
	return "name:" + strings.ToLower(p.Name)
}

// Change is one item that needs uploading, with the hash to checkpoint
// after the upload is confirmed.
type Change struct {
	Item    store.Product
	Key     string
	NewHash string
}

// Diff selects the candidates whose hash differs from the previously
// recorded hash for their key. With force set, every candidate is
// included. The returned hashes must be persisted only after a confirmed
// successful upload; checkpointing early would silently drop an item
// whose upload failed.
func Diff(candidates []store.Product, previous map[string]string, force bool) []Change {
	var changes []Change
	for _, item := range candidates {
		key := Key(item)
		hash := Hash(item)
		if !force && previous[key] == hash {
			continue
		}
		changes = append(changes, Change{Item: item, Key: key, NewHash: hash})
	}
	return changes
}

// Result summarizes one sync run.
type Result struct {
	Candidates int
	Uploaded   int
	Unchanged  int
}

// Invalidator drops derived cache state for a tenant after its catalog
// changes.
type Invalidator interface {
	Invalidate(tenantID string)
}

// Embedder is the subset of the embedding service the syncer needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Syncer applies catalog changes to the tenant store.
type Syncer struct {
	store    store.Store
	embedder Embedder
	caches   Invalidator
}

// NewSyncer creates a Syncer. caches may be nil when no cache layer is
// wired (tests, one-shot tools).
func NewSyncer(st store.Store, embedder Embedder, caches Invalidator) *Syncer {
	return &Syncer{store: st, embedder: embedder, caches: caches}
}

// Sync diffs candidates against the tenant's checkpoint, embeds and
// persists the changed items, and records the new hashes once the write
// has succeeded. With replace set the stored catalog is replaced wholesale
// by the candidates; otherwise changed items are merged over the stored
// catalog by key.
func (s *Syncer) Sync(ctx context.Context, tenantID string, candidates []store.Product, force, replace bool) (*Result, error) {
	previous, err := s.store.LoadSyncState(tenantID)
	if err != nil {
		return nil, err
	}

	// A wholesale replace re-uploads everything regardless of checkpoint.
	changes := Diff(candidates, previous, force || replace)
	result := &Result{
		Candidates: len(candidates),
		Uploaded:   len(changes),
		Unchanged:  len(candidates) - len(changes),
	}
	if len(changes) == 0 {
		log.Debug("Catalog unchanged", "tenant", tenantID, "candidates", len(candidates))
		return result, nil
	}

	texts := make([]string, len(changes))
	for i, ch := range changes {
		texts[i] = ch.Item.EmbedText()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed products: %w", err)
	}
	for i := range changes {
		changes[i].Item.Vector = vectors[i]
	}

	merged, err := s.merge(tenantID, changes, replace)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteProducts(tenantID, merged); err != nil {
		return nil, err
	}

	// Upload confirmed; now advance the checkpoint.
	next := previous
	if replace {
		next = make(map[string]string, len(candidates))
		for _, item := range candidates {
			next[Key(item)] = Hash(item)
		}
	} else {
		for _, ch := range changes {
			next[ch.Key] = ch.NewHash
		}
	}
	if err := s.store.SaveSyncState(tenantID, next); err != nil {
		return nil, fmt.Errorf("catalog uploaded but checkpoint not saved: %w", err)
	}

	if s.caches != nil {
		s.caches.Invalidate(tenantID)
	}

	log.Info("Catalog synced", "tenant", tenantID, "uploaded", result.Uploaded, "unchanged", result.Unchanged)
	return result, nil
}

// merge combines changed items with the stored catalog.
func (s *Syncer) merge(tenantID string, changes []Change, replace bool) ([]store.Product, error) {
	if replace {
		merged := make([]store.Product, len(changes))
		for i, ch := range changes {
			merged[i] = ch.Item
		}
		return merged, nil
	}

	existing, err := s.store.LoadProducts(tenantID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]int, len(existing))
	for i, p := range existing {
		byKey[Key(p)] = i
	}

	merged := existing
	for _, ch := range changes {
		if i, ok := byKey[ch.Key]; ok {
			merged[i] = ch.Item
		} else {
			merged = append(merged, ch.Item)
		}
	}
	return merged, nil
}
