package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/faq"
	"github.com/sitechat-ai/sitechat/internal/ui"
	"github.com/sitechat-ai/sitechat/internal/usage"
)

var (
	askUser     string
	askPlan     string
	askOverride int
	askTopK     int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <tenant> <message>...",
	Short: "Answer a visitor message with retrieval or the FAQ fallback",
	Long: `Run the chat gating flow for one visitor message: check the user's
monthly AI-call quota, and either retrieve grounding context for
generation (counting one AI call) or fall back to the FAQ rules.

Users on the rule plan, or over their monthly limit, always get the
fallback path.

Examples:
  # A metered user on the ai plan
  sitechat ask acme "do you ship to canada" --user user-123 --plan ai

  # A rule-plan user only ever sees FAQ replies
  sitechat ask acme "what payment methods do you take" --user user-456`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "anonymous", "user the AI call is metered against")
	askCmd.Flags().StringVar(&askPlan, "plan", "", "plan to record for the user (rule, ai, enterprise)")
	askCmd.Flags().IntVar(&askOverride, "override", 0, "override the monthly limit")
	askCmd.Flags().IntVarP(&askTopK, "top", "k", 5, "maximum context passages to retrieve")
}

func runAsk(cmd *cobra.Command, args []string) error {
	tenant := args[0]
	message := strings.Join(args[1:], " ")

	cfg := config.Get()
	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if _, err := ledger.Allow(askUser, askPlan, askOverride); err != nil {
		if errors.Is(err, usage.ErrQuotaExhausted) {
			return answerFromFAQ(cfg, message)
		}
		return err
	}

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
	chunks, err := engine.RetrieveChunks(ctx, tenant, message, askTopK)
	if err != nil {
		return err
	}
	products, err := engine.RetrieveProducts(ctx, tenant, message, askTopK)
	if err != nil {
		return err
	}

	// Context assembled; the generation call this grounds happens in the
	// chat frontend, so the meter ticks here.
	record, err := ledger.RecordSuccessfulAICall(askUser)
	if err != nil {
		return err
	}

	fmt.Println(ui.SectionTitle.Render("Grounding context"))
	fmt.Println()
	if len(chunks) == 0 && len(products) == 0 {
		fmt.Println("No indexed content matches. Has this tenant been indexed?")
	}
	for i, r := range chunks {
		fmt.Printf("%s %s\n",
			ui.ResultHeader.Render(fmt.Sprintf("%d. %s", i+1, r.URL)),
			ui.FormatScore(r.Score),
		)
		fmt.Println(ui.ResultContent.Render(snippet(r.Text, 200)))
	}
	for _, r := range products {
		fmt.Printf("%s %s %s\n",
			ui.ResultHeader.Render("Product: "+r.Product.Name),
			ui.FormatScore(r.Score),
			ui.FormatURL(r.Product.URL),
		)
	}
	fmt.Println()
	remaining := ledger.QuotaRemaining(record.Plan, record.AICalls, askOverride)
	fmt.Printf("AI calls this month: %d (%d remaining)\n", record.AICalls, remaining)
	return nil
}

// answerFromFAQ serves the no-generation path: a matching fallback rule
// or a generic pointer at the site.
func answerFromFAQ(cfg *config.Config, message string) error {
	if reply, ok := faq.Load(cfg.FAQ).Match(message); ok {
		fmt.Println(ui.SectionTitle.Render("FAQ reply"))
		fmt.Println()
		fmt.Println(reply)
		return nil
	}
	fmt.Println("I can only answer common questions right now. Please check the site or contact support.")
	return nil
}
