package cli

import (
	"fmt"
	"path/filepath"

	"github.com/sitechat-ai/sitechat/internal/cache"
	"github.com/sitechat-ai/sitechat/internal/chunker"
	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/crawler"
	"github.com/sitechat-ai/sitechat/internal/embeddings"
	"github.com/sitechat-ai/sitechat/internal/index"
	"github.com/sitechat-ai/sitechat/internal/retrieval"
	"github.com/sitechat-ai/sitechat/internal/store"
	"github.com/sitechat-ai/sitechat/internal/usage"
)

// openStore opens the per-tenant file store from configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	st, err := store.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newEmbedder creates the configured embedding service.
func newEmbedder(cfg *config.Config) (embeddings.Service, error) {
	embedder, err := embeddings.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	return embedder, nil
}

// newBuilder wires the index build pipeline.
func newBuilder(cfg *config.Config, st store.Store, embedder embeddings.Service, caches *cache.TenantCache) *index.Builder {
	fetcher := crawler.NewFetcher(cfg.Crawl.PageTimeout)
	ch := chunker.New(chunker.Options{
		Size:    cfg.Chunking.ChunkSize,
		Overlap: cfg.Chunking.ChunkOverlap,
	})
	return index.New(fetcher, embedder, ch, st, caches, index.Options{
		MaxPages:      cfg.Crawl.MaxPages,
		MaxTextLength: cfg.Crawl.MaxTextLength,
		MaxChunks:     cfg.Chunking.MaxChunksPerTenant,
	})
}

// newEngine wires the retrieval path: query cache in front of the
// embedder, tenant cache in front of the store.
func newEngine(cfg *config.Config, st store.Store, embedder embeddings.Service) *retrieval.Engine {
	tenants := cache.NewTenantCache(st, cfg.Cache.MaxTenants, nil)
	queries := cache.NewQueryCache(embedder, cfg.Cache.MaxQueries, cfg.Cache.QueryTTL, nil)
	return retrieval.New(tenants, queries)
}

// openLedger opens the usage ledger from configuration.
func openLedger(cfg *config.Config) (*usage.Ledger, error) {
	path := filepath.Join(cfg.Storage.DataDir, config.DefaultUsageDBFileName)
	ledger, err := usage.Open(path, cfg.Plans.Limits, cfg.Plans.OverrideCeiling, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}
	return ledger, nil
}
