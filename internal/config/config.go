// Package config handles configuration loading and validation for sitechat.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete sitechat configuration.
type Config struct {
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Plans      PlansConfig      `mapstructure:"plans"`
	FAQ        []FAQRule        `mapstructure:"faq"`
}

// CrawlConfig bounds a single site crawl.
type CrawlConfig struct {
	MaxPages      int           `mapstructure:"max_pages"`
	PageTimeout   time.Duration `mapstructure:"page_timeout"`
	MaxTextLength int           `mapstructure:"max_text_length"`
}

// ChunkingConfig configures text windowing.
type ChunkingConfig struct {
	ChunkSize          int `mapstructure:"chunk_size"`
	ChunkOverlap       int `mapstructure:"chunk_overlap"`
	MaxChunksPerTenant int `mapstructure:"max_chunks_per_tenant"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider      string            `mapstructure:"provider"`
	BatchSize     int               `mapstructure:"batch_size"`
	BatchInterval time.Duration     `mapstructure:"batch_interval"`
	Ollama        OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI        OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// CacheConfig bounds the in-process caches.
type CacheConfig struct {
	MaxTenants int           `mapstructure:"max_tenants"`
	MaxQueries int           `mapstructure:"max_queries"`
	QueryTTL   time.Duration `mapstructure:"query_ttl"`
}

// StorageConfig configures durable per-tenant storage.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// PlansConfig configures per-plan monthly AI-call quotas.
type PlansConfig struct {
	Limits          map[string]int `mapstructure:"limits"`
	OverrideCeiling int            `mapstructure:"override_ceiling"`
}

// FAQRule is a fallback rule the chat orchestrator consults when
// generation is unavailable.
type FAQRule struct {
	Pattern string `mapstructure:"pattern"`
	Reply   string `mapstructure:"reply"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			MaxPages:      DefaultMaxPages,
			PageTimeout:   DefaultPageTimeout,
			MaxTextLength: DefaultMaxTextLength,
		},
		Chunking: ChunkingConfig{
			ChunkSize:          DefaultChunkSize,
			ChunkOverlap:       DefaultChunkOverlap,
			MaxChunksPerTenant: DefaultMaxChunksPerTenant,
		},
		Embeddings: EmbeddingsConfig{
			Provider:      DefaultEmbeddingProvider,
			BatchSize:     DefaultEmbedBatchSize,
			BatchInterval: DefaultEmbedBatchInterval,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		Cache: CacheConfig{
			MaxTenants: DefaultMaxCachedTenants,
			MaxQueries: DefaultMaxCachedQueries,
			QueryTTL:   DefaultQueryTTL,
		},
		Storage: StorageConfig{
			DataDir: DefaultDataDir(),
		},
		Plans: PlansConfig{
			Limits:          DefaultPlanLimits(),
			OverrideCeiling: DefaultOverrideCeiling,
		},
		FAQ: DefaultFAQRules(),
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SITECHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadAPIKeysFromEnv()

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	// Crawl
	viper.SetDefault("crawl.max_pages", DefaultMaxPages)
	viper.SetDefault("crawl.page_timeout", DefaultPageTimeout)
	viper.SetDefault("crawl.max_text_length", DefaultMaxTextLength)

	// Chunking
	viper.SetDefault("chunking.chunk_size", DefaultChunkSize)
	viper.SetDefault("chunking.chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("chunking.max_chunks_per_tenant", DefaultMaxChunksPerTenant)

	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.batch_size", DefaultEmbedBatchSize)
	viper.SetDefault("embeddings.batch_interval", DefaultEmbedBatchInterval)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	// Caches
	viper.SetDefault("cache.max_tenants", DefaultMaxCachedTenants)
	viper.SetDefault("cache.max_queries", DefaultMaxCachedQueries)
	viper.SetDefault("cache.query_ttl", DefaultQueryTTL)

	// Storage
	viper.SetDefault("storage.data_dir", DefaultDataDir())

	// Plans
	viper.SetDefault("plans.override_ceiling", DefaultOverrideCeiling)
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}

	// Plan limits default here rather than in viper: SetDefault on a map
	// would shadow a partially specified config file.
	if cfg.Plans.Limits == nil {
		cfg.Plans.Limits = DefaultPlanLimits()
	}
	if len(cfg.FAQ) == 0 {
		cfg.FAQ = DefaultFAQRules()
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}
