package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitechat-ai/sitechat/internal/config"
	"github.com/sitechat-ai/sitechat/internal/ui"
	"github.com/sitechat-ai/sitechat/internal/usage"
)

var (
	usagePlan     string
	usageOverride int
	usageCheck    bool
)

// usageCmd represents the usage command
var usageCmd = &cobra.Command{
	Use:   "usage <user>",
	Short: "Show or manage a user's monthly AI-call usage",
	Long: `Display a user's AI-call usage for the current calendar month,
optionally changing their plan or checking whether another call would be
allowed.

Examples:
  # Show usage for a user
  sitechat usage user-123

  # Move a user to the ai plan
  sitechat usage user-123 --plan ai

  # Check whether another AI call would be allowed
  sitechat usage user-123 --check`,
	Args: cobra.ExactArgs(1),
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&usagePlan, "plan", "", "assign a plan (rule, ai, enterprise)")
	usageCmd.Flags().IntVar(&usageOverride, "override", 0, "override the monthly limit for the check")
	usageCmd.Flags().BoolVar(&usageCheck, "check", false, "report whether another AI call would be allowed")
}

func runUsage(cmd *cobra.Command, args []string) error {
	userID := args[0]

	cfg := config.Get()
	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	var record *usage.Record
	if usagePlan != "" {
		record, err = ledger.SetPlan(userID, usagePlan)
	} else {
		record, err = ledger.EnsureCurrentMonth(userID)
	}
	if err != nil {
		return err
	}

	remaining := ledger.QuotaRemaining(record.Plan, record.AICalls, usageOverride)

	fmt.Println(ui.SectionTitle.Render("Usage"))
	fmt.Println()
	fmt.Printf("  User:      %s\n", userID)
	fmt.Printf("  Month:     %s\n", record.Month)
	fmt.Printf("  Plan:      %s\n", record.Plan)
	fmt.Printf("  AI calls:  %d\n", record.AICalls)
	fmt.Printf("  Remaining: %d\n", remaining)

	if usageCheck {
		fmt.Println()
		if _, err := ledger.Allow(userID, "", usageOverride); err != nil {
			if errors.Is(err, usage.ErrQuotaExhausted) {
				fmt.Println(ui.Warning.Render("Next call would be refused: " + err.Error()))
				return nil
			}
			return err
		}
		fmt.Println(ui.Success.Render("Next call would be allowed"))
	}
	return nil
}
