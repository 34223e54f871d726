package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/basket"
	"github.com/Veraticus/mentat/internal/cli"
)

func basketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basket",
		Short: "Mine frequently-bought-together product rules",
		Long: `Mine frequent itemsets and association rules from invoice baskets.

Rules are ranked by confidence, then lift. A run that finds nothing is
reported with a diagnostic rather than failing.`,
		RunE: runBasket,
	}

	defaults := basket.DefaultConfig()
	cmd.Flags().Float64("min-support", defaults.MinSupport, "minimum itemset support")
	cmd.Flags().Float64("min-confidence", defaults.MinConfidence, "minimum rule confidence")
	cmd.Flags().Int("max-rules", defaults.MaxRules, "rules reported")
	cmd.Flags().Int("top-products", defaults.TopProducts, "restrict mining to the N most sold products")

	return cmd
}

func runBasket(cmd *cobra.Command, _ []string) error {
	cfg := basket.DefaultConfig()
	cfg.MinSupport, _ = cmd.Flags().GetFloat64("min-support")
	cfg.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
	cfg.MaxRules, _ = cmd.Flags().GetInt("max-rules")
	cfg.TopProducts, _ = cmd.Flags().GetInt("top-products")

	batch, sessionID, err := loadSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	result, err := basket.Mine(cmd.Context(), batch, cfg)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Basket Analysis (session " + sessionID + ")"))
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d invoices, %d products mined", result.Invoices, result.Products)))
	fmt.Println()

	if result.Diagnostic != "" {
		fmt.Println(cli.FormatWarning(result.Diagnostic))
		return nil
	}

	rows := make([][]string, 0, len(result.Rules))
	for _, r := range result.Rules {
		conviction := "-"
		if r.Conviction != nil {
			conviction = fmt.Sprintf("%.2f", *r.Conviction)
		}
		rows = append(rows, []string{
			strings.Join(r.Antecedent, " + "),
			strings.Join(r.Consequent, " + "),
			fmt.Sprintf("%.3f", r.Support),
			fmt.Sprintf("%.2f", r.Confidence),
			fmt.Sprintf("%.2f", r.Lift),
			conviction,
		})
	}
	fmt.Print(cli.RenderTable([]string{"If bought", "Also buys", "Support", "Confidence", "Lift", "Conviction"}, rows))
	fmt.Println()
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("avg confidence %.2f, avg lift %.2f", result.AvgConfidence, result.AvgLift)))

	for _, insight := range result.Insights {
		fmt.Println(cli.FormatInfo(insight))
	}
	return nil
}
