package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	// Crawl defaults
	assert.Equal(t, DefaultMaxPages, cfg.Crawl.MaxPages)
	assert.Equal(t, DefaultPageTimeout, cfg.Crawl.PageTimeout)
	assert.Equal(t, DefaultMaxTextLength, cfg.Crawl.MaxTextLength)

	// Chunking defaults
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, DefaultMaxChunksPerTenant, cfg.Chunking.MaxChunksPerTenant)

	// Embeddings defaults
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embeddings.Provider)
	assert.Equal(t, DefaultOllamaURL, cfg.Embeddings.Ollama.URL)
	assert.Equal(t, DefaultOllamaEmbedModel, cfg.Embeddings.Ollama.Model)
	assert.Equal(t, DefaultOpenAIEmbedModel, cfg.Embeddings.OpenAI.Model)

	// Cache defaults
	assert.Equal(t, DefaultMaxCachedTenants, cfg.Cache.MaxTenants)
	assert.Equal(t, DefaultMaxCachedQueries, cfg.Cache.MaxQueries)
	assert.Equal(t, DefaultQueryTTL, cfg.Cache.QueryTTL)

	// Plan defaults
	assert.Equal(t, 0, cfg.Plans.Limits["rule"])
	assert.Equal(t, 500, cfg.Plans.Limits["ai"])
	assert.Equal(t, 5000, cfg.Plans.Limits["enterprise"])
	assert.Equal(t, DefaultOverrideCeiling, cfg.Plans.OverrideCeiling)

	// FAQ rules
	assert.NotEmpty(t, cfg.FAQ)
}

func TestDefaultPaths(t *testing.T) {
	configDir := DefaultConfigDir()
	dataDir := DefaultDataDir()
	dbPath := DefaultUsageDBPath()

	assert.NotEmpty(t, configDir)
	assert.NotEmpty(t, dataDir)
	assert.NotEmpty(t, dbPath)

	// Should contain "sitechat"
	assert.Contains(t, configDir, "sitechat")
	assert.Contains(t, dataDir, "sitechat")
	assert.Contains(t, dbPath, "usage.db")
}

func TestLoadWithConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
crawl:
  max_pages: 50
  page_timeout: 30s
chunking:
  chunk_size: 800
  chunk_overlap: 100
embeddings:
  provider: ollama
  ollama:
    url: http://custom:11434
    model: custom-model
  openai:
    model: text-embedding-3-large
    base_url: https://custom-api.example.com
cache:
  max_tenants: 5
  query_ttl: 2m
storage:
  data_dir: /custom/data
plans:
  limits:
    ai: 1000
faq:
  - pattern: "(?i)warranty"
    reply: "Two-year warranty on everything."
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Load the config
	err = Load(configPath)
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify loaded values
	assert.Equal(t, 50, loadedCfg.Crawl.MaxPages)
	assert.Equal(t, 30*time.Second, loadedCfg.Crawl.PageTimeout)
	assert.Equal(t, 800, loadedCfg.Chunking.ChunkSize)
	assert.Equal(t, 100, loadedCfg.Chunking.ChunkOverlap)
	assert.Equal(t, "ollama", loadedCfg.Embeddings.Provider)
	assert.Equal(t, "http://custom:11434", loadedCfg.Embeddings.Ollama.URL)
	assert.Equal(t, "custom-model", loadedCfg.Embeddings.Ollama.Model)
	assert.Equal(t, "text-embedding-3-large", loadedCfg.Embeddings.OpenAI.Model)
	assert.Equal(t, "https://custom-api.example.com", loadedCfg.Embeddings.OpenAI.BaseURL)
	assert.Equal(t, 5, loadedCfg.Cache.MaxTenants)
	assert.Equal(t, 2*time.Minute, loadedCfg.Cache.QueryTTL)
	assert.Equal(t, "/custom/data", loadedCfg.Storage.DataDir)
	assert.Equal(t, 1000, loadedCfg.Plans.Limits["ai"])

	// Unmentioned values keep their defaults
	assert.Equal(t, DefaultMaxChunksPerTenant, loadedCfg.Chunking.MaxChunksPerTenant)
	assert.Equal(t, DefaultMaxCachedQueries, loadedCfg.Cache.MaxQueries)

	// A configured FAQ list replaces the built-in rules
	require.Len(t, loadedCfg.FAQ, 1)
	assert.Equal(t, "(?i)warranty", loadedCfg.FAQ[0].Pattern)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Set environment variables
	t.Setenv("SITECHAT_EMBEDDINGS_PROVIDER", "ollama")
	t.Setenv("SITECHAT_CRAWL_MAX_PAGES", "7")
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	// Load without a config file
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify environment variables are loaded
	assert.Equal(t, "ollama", loadedCfg.Embeddings.Provider)
	assert.Equal(t, 7, loadedCfg.Crawl.MaxPages)
	assert.Equal(t, "test-api-key", loadedCfg.Embeddings.OpenAI.APIKey)
}

func TestLoadMissingConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Load with no config file present - should not error, just use defaults
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Should have default values
	assert.Equal(t, DefaultEmbeddingProvider, loadedCfg.Embeddings.Provider)
	assert.Equal(t, DefaultMaxPages, loadedCfg.Crawl.MaxPages)
	assert.NotEmpty(t, loadedCfg.Plans.Limits)
	assert.NotEmpty(t, loadedCfg.FAQ)
}

func TestGet(t *testing.T) {
	// Reset global config
	cfg = nil

	// First call should return default config
	c1 := Get()
	assert.NotNil(t, c1)

	// Subsequent call should return same instance
	c2 := Get()
	assert.Same(t, c1, c2)
}
