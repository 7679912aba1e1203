// Package index orchestrates site index builds: crawl, extract, chunk,
// embed, and stream results into the tenant store.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/chunker"
	"github.com/sitechat-ai/sitechat/internal/crawler"
	"github.com/sitechat-ai/sitechat/internal/embeddings"
	"github.com/sitechat-ai/sitechat/internal/store"
)

// ErrBuildInProgress is returned when a build for the same tenant is
// already running. Interleaved writers would corrupt the streamed chunk
// file, so builds are serialized per tenant.
var ErrBuildInProgress = errors.New("index build already in progress for tenant")

// Invalidator drops derived cache state for a tenant after a build.
type Invalidator interface {
	Invalidate(tenantID string)
}

// Options bounds one index build.
type Options struct {
	// MaxPages caps how many sitemap URLs are crawled.
	MaxPages int

	// MaxTextLength truncates a page's extracted text before chunking.
	MaxTextLength int

	// MaxChunks is the tenant-wide chunk budget shared across all pages.
	MaxChunks int
}

// Builder runs index builds for tenants.
type Builder struct {
	fetcher  *crawler.Fetcher
	embedder embeddings.Service
	chunker  *chunker.Chunker
	store    store.Store
	caches   Invalidator
	opts     Options

	mu       sync.Mutex
	building map[string]bool
}

// New creates a Builder. caches may be nil when no cache layer is wired.
func New(fetcher *crawler.Fetcher, embedder embeddings.Service, ch *chunker.Chunker, st store.Store, caches Invalidator, opts Options) *Builder {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 30
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 2000
	}
	return &Builder{
		fetcher:  fetcher,
		embedder: embedder,
		chunker:  ch,
		store:    st,
		caches:   caches,
		opts:     opts,
		building: make(map[string]bool),
	}
}

// Build crawls baseURL, indexes its text and products for the tenant, and
// publishes the result. Page failures are skipped; an embedding provider
// failure aborts the build with the previous index left intact. On
// success the tenant's cached vectors are invalidated.
func (b *Builder) Build(ctx context.Context, tenantID, baseURL string) (*store.Status, error) {
	id := store.SanitizeTenantID(tenantID)
	if !b.acquire(id) {
		return nil, fmt.Errorf("%w: %s", ErrBuildInProgress, id)
	}
	defer b.release(id)

	start := time.Now()
	urls := b.fetcher.FetchSitemap(ctx, baseURL, b.opts.MaxPages)
	log.Info("Starting index build", "tenant", id, "url", baseURL, "pages", len(urls))

	writer, err := b.store.NewChunkWriter(id)
	if err != nil {
		return nil, err
	}
	defer writer.Discard()

	var pages []store.Page
	var products []store.Product

	for _, pageURL := range urls {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		html, err := b.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			// Recoverable: skip the URL, continue the crawl.
			log.Warn("Skipping page", "url", pageURL, "error", err)
			continue
		}

		products = append(products, crawler.ExtractProducts(html, pageURL)...)

		text := chunker.Truncate(crawler.HTMLToText(html), b.opts.MaxTextLength)
		pages = append(pages, store.Page{URL: pageURL, Text: text})

		if err := b.indexPage(ctx, writer, pageURL, text); err != nil {
			return nil, err
		}
	}

	productVectors, err := b.embedProducts(ctx, products)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Vector = embeddings.Normalize(productVectors[i])
	}

	if err := b.store.WriteSnapshot(id, &store.Snapshot{BaseURL: baseURL, Pages: pages}); err != nil {
		return nil, err
	}
	if err := writer.Commit(); err != nil {
		return nil, err
	}
	if err := b.store.WriteProducts(id, products); err != nil {
		return nil, err
	}

	status := &store.Status{
		Pages:     len(pages),
		Chunks:    writer.Count(),
		Products:  len(products),
		BaseURL:   baseURL,
		IndexedAt: time.Now(),
	}
	if err := b.store.WriteStatus(id, status); err != nil {
		return nil, err
	}

	if b.caches != nil {
		b.caches.Invalidate(id)
	}

	log.Info("Index build complete",
		"tenant", id,
		"pages", status.Pages,
		"chunks", status.Chunks,
		"products", status.Products,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return status, nil
}

// indexPage chunks one page under the remaining tenant budget, embeds the
// windows, and streams the records to the writer.
func (b *Builder) indexPage(ctx context.Context, writer store.ChunkWriter, pageURL, text string) error {
	remaining := b.opts.MaxChunks - writer.Count()
	windows := b.chunker.Chunk(text, remaining)
	if len(windows) == 0 {
		return nil
	}

	vectors, err := b.embedder.EmbedBatch(ctx, windows)
	if err != nil {
		// Hard failure: no partial or corrupted vectors are persisted.
		return fmt.Errorf("failed to embed chunks for %s: %w", pageURL, err)
	}

	for i, window := range windows {
		chunk := store.Chunk{
			URL:    pageURL,
			Text:   window,
			Vector: embeddings.Normalize(vectors[i]),
		}
		if err := writer.Add(chunk); err != nil {
			return err
		}
	}

	log.Debug("Indexed page", "url", pageURL, "chunks", len(windows))
	return nil
}

// embedProducts embeds the (comparatively few) product records in one pass.
func (b *Builder) embedProducts(ctx context.Context, products []store.Product) ([][]float32, error) {
	if len(products) == 0 {
		return nil, nil
	}
	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = p.EmbedText()
	}
	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed products: %w", err)
	}
	return vectors, nil
}

// acquire reserves the tenant's build slot.
func (b *Builder) acquire(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.building[id] {
		return false
	}
	b.building[id] = true
	return true
}

// release frees the tenant's build slot.
func (b *Builder) release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.building, id)
}
