// Package retrieval ranks a tenant's indexed chunks and products against a
// query by cosine similarity.
package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/cache"
	"github.com/sitechat-ai/sitechat/internal/embeddings"
	"github.com/sitechat-ai/sitechat/internal/store"
)

// Engine answers similarity queries from cached tenant vectors.
type Engine struct {
	tenants *cache.TenantCache
	queries *cache.QueryCache
}

// ChunkResult is one ranked chunk.
type ChunkResult struct {
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ProductResult is one ranked product.
type ProductResult struct {
	Product store.Product `json:"product"`
	Score   float64       `json:"score"`
}

// New creates a retrieval engine over the given caches.
func New(tenants *cache.TenantCache, queries *cache.QueryCache) *Engine {
	return &Engine{tenants: tenants, queries: queries}
}

// RetrieveChunks returns the tenant's top-k chunks by similarity to the
// query, sorted by descending score. Equal scores keep storage order. A
// tenant without an index, or k <= 0, yields an empty result, not an error.
func (e *Engine) RetrieveChunks(ctx context.Context, tenantID, query string, k int) ([]ChunkResult, error) {
	if k <= 0 {
		return nil, nil
	}

	data, queryVec, err := e.prepare(ctx, tenantID, query)
	if err != nil || data == nil {
		return nil, err
	}

	results := make([]ChunkResult, 0, len(data.Chunks))
	for _, c := range data.Chunks {
		results = append(results, ChunkResult{
			URL:   c.URL,
			Text:  c.Text,
			Score: embeddings.Dot(queryVec, c.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	log.Debug("Retrieved chunks", "tenant", tenantID, "k", k, "results", len(results))
	return results, nil
}

// RetrieveProducts returns the tenant's top-k products by similarity to
// the query, with the same ranking contract as RetrieveChunks.
func (e *Engine) RetrieveProducts(ctx context.Context, tenantID, query string, k int) ([]ProductResult, error) {
	if k <= 0 {
		return nil, nil
	}

	data, queryVec, err := e.prepare(ctx, tenantID, query)
	if err != nil || data == nil {
		return nil, err
	}

	results := make([]ProductResult, 0, len(data.Products))
	for _, p := range data.Products {
		if len(p.Vector) == 0 {
			continue
		}
		results = append(results, ProductResult{
			Product: p,
			Score:   embeddings.Dot(queryVec, p.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	log.Debug("Retrieved products", "tenant", tenantID, "k", k, "results", len(results))
	return results, nil
}

// prepare resolves the tenant snapshot and the query embedding. A missing
// index returns (nil, nil, nil) so callers produce an empty ranking.
func (e *Engine) prepare(ctx context.Context, tenantID, query string) (*cache.TenantData, []float32, error) {
	data, err := e.tenants.Get(tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotIndexed) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	queryVec, err := e.queries.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	return data, queryVec, nil
}
