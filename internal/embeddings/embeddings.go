// Package embeddings provides text embedding services for semantic retrieval.
package embeddings

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitechat-ai/sitechat/internal/config"
)

// Provider represents an embedding provider type.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Service defines the interface for embedding services.
type Service interface {
	// Embed generates an embedding for the given text (for documents).
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery generates an embedding for a query (may use different task prefix).
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one vector per
	// input in the same order. Inputs are split into provider calls of at
	// most the configured batch size, paced by a fixed inter-batch delay.
	// Any batch failure fails the whole call; no partial results are
	// returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimensions for this model.
	Dimensions() int

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// Known model dimensions
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates an embedding service based on the configuration.
func NewService(cfg *config.Config) (Service, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return NewOllamaService(
			cfg.Embeddings.Ollama.URL,
			cfg.Embeddings.Ollama.Model,
			cfg.Embeddings.BatchSize,
			cfg.Embeddings.BatchInterval,
		)
	case "openai":
		return NewOpenAIService(
			cfg.Embeddings.OpenAI.APIKey,
			cfg.Embeddings.OpenAI.Model,
			cfg.Embeddings.OpenAI.BaseURL,
			cfg.Embeddings.OpenAI.Dimensions,
			cfg.Embeddings.BatchSize,
			cfg.Embeddings.BatchInterval,
		)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}
}

// batcher carries the shared batch-splitting and pacing behavior.
// The inter-batch delay is a deliberate throttle against provider rate
// limits, not an accidental serialization.
type batcher struct {
	batchSize int
	limiter   *rate.Limiter
}

func newBatcher(batchSize int, interval time.Duration) batcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return batcher{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// run splits texts into batches and calls embed once per batch,
// sequentially, waiting out the pacing interval between calls.
func (b batcher) run(ctx context.Context, texts []string, embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(vectors), end-start)
		}
		results = append(results, vectors...)
	}
	return results, nil
}
