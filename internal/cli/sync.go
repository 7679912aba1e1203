package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/catalog"
	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/store"
	"github.com/sitechat-ai/sitechat/internal/ui"
)

var (
	syncFile    string
	syncForce   bool
	syncReplace bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync <tenant>",
	Short: "Sync a tenant's product catalog incrementally",
	Long: `Upload a product catalog for a tenant, embedding and storing only
the items whose content hash changed since the last confirmed upload.

The input file is a JSON array of product records in canonical shape
(name, description, url, price, currency, image, sku, brand). Feed/CSV
normalization happens upstream.

Examples:
  # Incremental sync
  sitechat sync acme --file products.json

  # Re-upload everything regardless of hashes
  sitechat sync acme --file products.json --force

  # Replace the stored catalog wholesale
  sitechat sync acme --file products.json --replace`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFile, "file", "", "JSON file of canonical product records (required)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "upload every item regardless of change detection")
	syncCmd.Flags().BoolVar(&syncReplace, "replace", false, "replace the stored catalog instead of merging")
	_ = syncCmd.MarkFlagRequired("file")
}

func runSync(cmd *cobra.Command, args []string) error {
	tenant := args[0]

	data, err := os.ReadFile(syncFile)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	var candidates []store.Product
	if err := json.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}

	cfg := config.Get()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	syncer := catalog.NewSyncer(st, embedder, nil)
	result, err := syncer.Sync(context.Background(), tenant, candidates, syncForce, syncReplace)
	if err != nil {
		return err
	}

	fmt.Println(ui.Success.Render("Catalog synced"))
	fmt.Printf("  candidates: %d\n", result.Candidates)
	fmt.Printf("  uploaded:   %d\n", result.Uploaded)
	fmt.Printf("  unchanged:  %d\n", result.Unchanged)
	return nil
}
