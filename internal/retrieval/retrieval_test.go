package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechat-ai/sitechat/internal/cache"
	"github.com/sitechat-ai/sitechat/internal/embeddings"
	"github.com/sitechat-ai/sitechat/internal/store"
)

// axisEmbedder maps known query strings to fixed unit vectors.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (e *axisEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no test vector for query %q", text)
	}
	return append([]float32(nil), v...), nil
}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedQuery(ctx, text)
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *axisEmbedder) Dimensions() int               { return 3 }
func (e *axisEmbedder) Provider() embeddings.Provider { return "test" }
func (e *axisEmbedder) ModelName() string             { return "test-model" }

var _ embeddings.Service = (*axisEmbedder)(nil)

func newTestEngine(t *testing.T) (*Engine, *store.FileStore) {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	emb := &axisEmbedder{vectors: map[string][]float32{
		"boots": {1, 0, 0},
		"mugs":  {0, 1, 0},
	}}

	tenants := cache.NewTenantCache(st, 20, nil)
	queries := cache.NewQueryCache(emb, 500, 10*time.Minute, nil)
	return New(tenants, queries), st
}

func writeChunks(t *testing.T, st *store.FileStore, tenantID string, chunks []store.Chunk) {
	t.Helper()
	w, err := st.NewChunkWriter(tenantID)
	require.NoError(t, err)
	for _, c := range chunks {
		require.NoError(t, w.Add(c))
	}
	require.NoError(t, w.Commit())
}

func TestRetrieveChunksRanking(t *testing.T) {
	e, st := newTestEngine(t)

	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/mug", Text: "ceramic mug", Vector: []float32{0, 1, 0}},
		{URL: "/boot", Text: "leather boot", Vector: []float32{1, 0, 0}},
		{URL: "/mixed", Text: "boot care kit", Vector: []float32{0.6, 0.8, 0}},
	})

	results, err := e.RetrieveChunks(context.Background(), "acme", "boots", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Descending similarity to the query axis.
	assert.Equal(t, "/boot", results[0].URL)
	assert.Equal(t, "/mixed", results[1].URL)
	assert.Equal(t, "/mug", results[2].URL)

	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
}

func TestRetrieveChunksTopK(t *testing.T) {
	e, st := newTestEngine(t)

	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/a", Text: "a", Vector: []float32{1, 0, 0}},
		{URL: "/b", Text: "b", Vector: []float32{0, 1, 0}},
		{URL: "/c", Text: "c", Vector: []float32{0, 0, 1}},
	})

	results, err := e.RetrieveChunks(context.Background(), "acme", "boots", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// k beyond the index size returns everything.
	results, err = e.RetrieveChunks(context.Background(), "acme", "boots", 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieveChunksStableTies(t *testing.T) {
	e, st := newTestEngine(t)

	// Three chunks equidistant from the query keep their storage order.
	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/first", Text: "1", Vector: []float32{0, 1, 0}},
		{URL: "/second", Text: "2", Vector: []float32{0, 1, 0}},
		{URL: "/third", Text: "3", Vector: []float32{0, 1, 0}},
	})

	results, err := e.RetrieveChunks(context.Background(), "acme", "boots", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "/first", results[0].URL)
	assert.Equal(t, "/second", results[1].URL)
	assert.Equal(t, "/third", results[2].URL)
}

func TestRetrieveChunksMissingTenant(t *testing.T) {
	e, _ := newTestEngine(t)

	results, err := e.RetrieveChunks(context.Background(), "nobody", "boots", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveChunksNonPositiveK(t *testing.T) {
	e, st := newTestEngine(t)

	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/a", Text: "a", Vector: []float32{1, 0, 0}},
	})

	for _, k := range []int{0, -1} {
		results, err := e.RetrieveChunks(context.Background(), "acme", "boots", k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestRetrieveProducts(t *testing.T) {
	e, st := newTestEngine(t)

	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/a", Text: "a", Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, st.WriteProducts("acme", []store.Product{
		{Name: "Mug", Vector: []float32{0, 1, 0}},
		{Name: "Boot", Vector: []float32{1, 0, 0}},
		{Name: "Unembedded"},
	}))

	results, err := e.RetrieveProducts(context.Background(), "acme", "boots", 5)
	require.NoError(t, err)

	// The vectorless product is excluded from ranking entirely.
	require.Len(t, results, 2)
	assert.Equal(t, "Boot", results[0].Product.Name)
	assert.Equal(t, "Mug", results[1].Product.Name)
}

func TestRetrieveProductsTenantWithoutCatalog(t *testing.T) {
	e, st := newTestEngine(t)

	writeChunks(t, st, "acme", []store.Chunk{
		{URL: "/a", Text: "a", Vector: []float32{1, 0, 0}},
	})

	results, err := e.RetrieveProducts(context.Background(), "acme", "boots", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
