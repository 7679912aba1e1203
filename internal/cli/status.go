package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/store"
	"github.com/sitechat-ai/sitechat/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <tenant>",
	Short: "Show a tenant's index status",
	Long: `Display the summary of a tenant's last successful index build:
page, chunk, and product counts, the crawled base URL, and when the
index was built.

Examples:
  sitechat status acme`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	tenant := args[0]

	cfg := config.Get()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	status, err := st.LoadStatus(tenant)
	if err != nil {
		if errors.Is(err, store.ErrNotIndexed) {
			fmt.Printf("Tenant %q has no index.\n", tenant)
			fmt.Println()
			fmt.Println("Run 'sitechat index <tenant> <url>' to build one.")
			return nil
		}
		return err
	}

	fmt.Println(ui.SectionTitle.Render("Index Status"))
	fmt.Println()
	fmt.Printf("  Tenant:    %s\n", store.SanitizeTenantID(tenant))
	fmt.Printf("  Base URL:  %s\n", status.BaseURL)
	fmt.Printf("  Pages:     %d\n", status.Pages)
	fmt.Printf("  Chunks:    %d\n", status.Chunks)
	fmt.Printf("  Products:  %d\n", status.Products)
	fmt.Printf("  Indexed:   %s\n", status.IndexedAt.Format("2006-01-02 15:04:05"))
	return nil
}
