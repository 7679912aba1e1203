package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/ui"
)

var indexMaxPages int

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <tenant> <url>",
	Short: "Crawl a tenant's site and build its retrieval index",
	Long: `Crawl a tenant's site and build its retrieval index.

This command will:
1. Read the site's sitemap.xml (falling back to the base URL alone)
2. Extract plain text and schema.org product data from each page
3. Split text into overlapping chunks under the tenant's chunk budget
4. Generate embeddings and stream the index to tenant storage

Examples:
  # Index a tenant's site
  sitechat index acme https://acme.example

  # Index at most 10 pages
  sitechat index acme https://acme.example --max-pages 10`,
	Args: cobra.ExactArgs(2),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexMaxPages, "max-pages", 0, "maximum pages to crawl (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	tenant, baseURL := args[0], args[1]

	cfg := config.Get()
	if indexMaxPages > 0 {
		cfg.Crawl.MaxPages = indexMaxPages
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	// Cancel the crawl cleanly on Ctrl-C.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	builder := newBuilder(cfg, st, embedder, nil)
	status, err := builder.Build(ctx, tenant, baseURL)
	if err != nil {
		return err
	}

	fmt.Println(ui.Success.Render("Index built"))
	fmt.Printf("  pages:    %d\n", status.Pages)
	fmt.Printf("  chunks:   %d\n", status.Chunks)
	fmt.Printf("  products: %d\n", status.Products)
	return nil
}
