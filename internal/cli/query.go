package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/ui"
)

var (
	queryTopK     int
	queryProducts bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <tenant> <text>...",
	Short: "Retrieve the tenant content most similar to a query",
	Long: `Retrieve the tenant's indexed chunks (or products) ranked by
similarity to the query. This is the grounding step a chat orchestrator
runs before assembling a prompt.

Examples:
  # Top chunks for a question
  sitechat query acme "what is your return policy"

  # Top products instead of chunks
  sitechat query acme "waterproof hiking boots" --products

  # Limit the result count
  sitechat query acme "shipping options" -k 3`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top", "k", 5, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryProducts, "products", false, "search the product catalog instead of page chunks")
}

func runQuery(cmd *cobra.Command, args []string) error {
	tenant := args[0]
	query := strings.Join(args[1:], " ")

	cfg := config.Get()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	engine := newEngine(cfg, st, embedder)

	ctx := context.Background()

	if queryProducts {
		results, err := engine.RetrieveProducts(ctx, tenant, query, queryTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matching products.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%s %s %s\n",
				ui.ResultHeader.Render(fmt.Sprintf("%d. %s", i+1, r.Product.Name)),
				ui.FormatScore(r.Score),
				ui.FormatURL(r.Product.URL),
			)
			if r.Product.Price != "" {
				fmt.Println(ui.ResultContent.Render(r.Product.Price + " " + r.Product.Currency))
			}
		}
		return nil
	}

	results, err := engine.RetrieveChunks(ctx, tenant, query, queryTopK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching chunks. Has this tenant been indexed?")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%s %s\n",
			ui.ResultHeader.Render(fmt.Sprintf("%d. %s", i+1, r.URL)),
			ui.FormatScore(r.Score),
		)
		fmt.Println(ui.ResultContent.Render(snippet(r.Text, 200)))
	}
	return nil
}

// snippet shortens chunk text for terminal display.
func snippet(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-3] + "..."
}
