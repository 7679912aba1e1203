package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Crawl defaults
	DefaultMaxPages      = 30
	DefaultPageTimeout   = 15 * time.Second
	DefaultMaxTextLength = 200_000

	// Chunking defaults
	DefaultChunkSize          = 1200
	DefaultChunkOverlap       = 200
	DefaultMaxChunksPerTenant = 2000

	// Embedding defaults
	DefaultEmbeddingProvider  = "openai"
	DefaultOllamaURL          = "http://localhost:11434"
	DefaultOllamaEmbedModel   = "nomic-embed-text"
	DefaultOpenAIEmbedModel   = "text-embedding-3-small"
	DefaultEmbedBatchSize     = 50
	DefaultEmbedBatchInterval = 200 * time.Millisecond

	// Cache defaults
	DefaultMaxCachedTenants = 20
	DefaultMaxCachedQueries = 500
	DefaultQueryTTL         = 10 * time.Minute

	// Quota defaults
	DefaultOverrideCeiling = 100_000

	// Usage ledger database file
	DefaultUsageDBFileName = "usage.db"
)

// DefaultPlanLimits returns the monthly AI-call limit per plan.
// Plan "rule" never allows generation, so its limit is zero.
func DefaultPlanLimits() map[string]int {
	return map[string]int{
		"rule":       0,
		"ai":         500,
		"enterprise": 5000,
	}
}

// DefaultFAQRules returns the built-in fallback rules consulted when
// generation is unavailable or over quota.
func DefaultFAQRules() []FAQRule {
	return []FAQRule{
		{Pattern: `(?i)shipping`, Reply: "We offer standard, express, and overnight shipping."},
		{Pattern: `(?i)return`, Reply: "You can return most items within 30 days of purchase."},
		{Pattern: `(?i)payment`, Reply: "We accept Visa, MasterCard, PayPal, and Apple Pay."},
		{Pattern: `(?i)contact`, Reply: "You can reach us via our Contact page or email support@example.com."},
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/sitechat"
	}
	return filepath.Join(home, ".config", "sitechat")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/sitechat"
	}
	return filepath.Join(home, ".local", "share", "sitechat")
}

// DefaultUsageDBPath returns the default usage ledger database path.
func DefaultUsageDBPath() string {
	return filepath.Join(DefaultDataDir(), DefaultUsageDBFileName)
}
