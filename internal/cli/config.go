package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  sitechat config

  # Show config file paths
  sitechat config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Config dir:    %s\n", config.DefaultConfigDir())
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Data dir:      %s\n", cfg.Storage.DataDir)
		return nil
	}

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Crawl:"))
	fmt.Printf("  Max Pages: %d\n", cfg.Crawl.MaxPages)
	fmt.Printf("  Page Timeout: %s\n", cfg.Crawl.PageTimeout)
	fmt.Printf("  Max Text Length: %d\n", cfg.Crawl.MaxTextLength)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Chunking:"))
	fmt.Printf("  Chunk Size: %d\n", cfg.Chunking.ChunkSize)
	fmt.Printf("  Chunk Overlap: %d\n", cfg.Chunking.ChunkOverlap)
	fmt.Printf("  Max Chunks Per Tenant: %d\n", cfg.Chunking.MaxChunksPerTenant)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Batch Size: %d\n", cfg.Embeddings.BatchSize)
	fmt.Printf("  Batch Interval: %s\n", cfg.Embeddings.BatchInterval)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("Cache:"))
	fmt.Printf("  Max Tenants: %d\n", cfg.Cache.MaxTenants)
	fmt.Printf("  Max Queries: %d\n", cfg.Cache.MaxQueries)
	fmt.Printf("  Query TTL: %s\n", cfg.Cache.QueryTTL)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Plans:"))
	for plan, limit := range cfg.Plans.Limits {
		fmt.Printf("  %s: %d calls/month\n", plan, limit)
	}
	fmt.Printf("  Override Ceiling: %d\n", cfg.Plans.OverrideCeiling)
	fmt.Println()

	fmt.Println(ui.Bold.Render("FAQ:"))
	fmt.Printf("  %d fallback rules configured\n", len(cfg.FAQ))

	return nil
}
