package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/ingest"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/Veraticus/mentat/internal/policy"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Score orders and tune the COD gatekeeping policy",
	}

	defaults := policy.DefaultCostParams()
	cmd.PersistentFlags().Float64("cogs-ratio", defaults.COGSRatio, "cost of goods sold as a fraction of revenue")
	cmd.PersistentFlags().Float64("shipping-cost", defaults.ShippingCost, "flat shipping cost per order")
	cmd.PersistentFlags().Float64("return-cost", defaults.ReturnProcessingCost, "cost of processing one return")
	cmd.PersistentFlags().Float64("conversion-impact", defaults.ConversionRateImpact, "margin fraction lost when blocking")

	cmd.AddCommand(policySimulateCmd())
	cmd.AddCommand(policyOptimizeCmd())

	return cmd
}

func costParamsFromFlags(cmd *cobra.Command) policy.CostParams {
	p := policy.DefaultCostParams()
	p.COGSRatio, _ = cmd.Flags().GetFloat64("cogs-ratio")
	p.ShippingCost, _ = cmd.Flags().GetFloat64("shipping-cost")
	p.ReturnProcessingCost, _ = cmd.Flags().GetFloat64("return-cost")
	p.ConversionRateImpact, _ = cmd.Flags().GetFloat64("conversion-impact")
	return p
}

func readOrders(path string) ([]model.OrderFeatures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening orders %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadOrders(f)
}

func policySimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [orders.csv]",
		Short: "Evaluate an order batch at a fixed threshold",
		Args:  cobra.ExactArgs(1),
		RunE:  runPolicySimulate,
	}

	cmd.Flags().Float64("threshold", 75, "approval threshold on the 0-100 risk scale")

	return cmd
}

func runPolicySimulate(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	params := costParamsFromFlags(cmd)

	orders, err := readOrders(args[0])
	if err != nil {
		return err
	}

	sim, err := policy.Simulate(cmd.Context(), orders, policy.DefaultScorer(), threshold, params)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Policy Simulation (threshold %.0f)", threshold)))
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Orders", fmt.Sprintf("%d", sim.TotalOrders)},
		{"Expected profit", fmt.Sprintf("%.2f", sim.TotalProfit)},
		{"Orders impacted", fmt.Sprintf("%d (%.1f%%)", sim.OrdersImpacted, sim.OrdersImpactedPct)},
		{"Revenue at risk", fmt.Sprintf("%.2f", sim.RevenueAtRisk)},
	}))
	fmt.Println()

	rows := make([][]string, 0, len(sim.Decisions))
	for _, d := range sim.Decisions {
		action := string(d.Action)
		switch d.Action {
		case model.ActionApprove:
			action = cli.StyleSuccess(action)
		case model.ActionRequirePrepay:
			action = cli.StyleWarning(action)
		case model.ActionBlockCOD:
			action = cli.StyleError(action)
		}
		rows = append(rows, []string{
			d.OrderID,
			fmt.Sprintf("%.1f", d.RiskScore),
			action,
			fmt.Sprintf("%.2f", d.ProfitApproved),
			fmt.Sprintf("%.2f", d.ProfitBlocked),
		})
	}
	fmt.Print(cli.RenderTable([]string{"Order", "Risk", "Action", "Profit if approved", "Profit if blocked"}, rows))
	return nil
}

func policyOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize [orders.csv]",
		Short: "Sweep thresholds and recommend the most profitable one",
		RunE:  runPolicyOptimize,
		Args:  cobra.ExactArgs(1),
	}

	sweep := policy.DefaultSweep()
	cmd.Flags().Float64("min", sweep.Min, "lowest threshold swept")
	cmd.Flags().Float64("max", sweep.Max, "highest threshold swept")
	cmd.Flags().Float64("step", sweep.Step, "sweep step size")

	return cmd
}

func runPolicyOptimize(cmd *cobra.Command, args []string) error {
	params := costParamsFromFlags(cmd)
	sweep := policy.DefaultSweep()
	sweep.Min, _ = cmd.Flags().GetFloat64("min")
	sweep.Max, _ = cmd.Flags().GetFloat64("max")
	sweep.Step, _ = cmd.Flags().GetFloat64("step")

	orders, err := readOrders(args[0])
	if err != nil {
		return err
	}

	opt, err := policy.FindOptimalThreshold(cmd.Context(), orders, policy.DefaultScorer(), sweep, params)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Policy Optimization"))
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Optimal threshold", fmt.Sprintf("%.0f", opt.Threshold)},
		{"Expected profit", fmt.Sprintf("%.2f", opt.MaxProfit)},
		{"Baseline profit", fmt.Sprintf("%.2f", opt.BaselineProfit)},
		{"Profit gain", fmt.Sprintf("%.2f", opt.ProfitGain)},
	}))
	fmt.Println()
	fmt.Println(cli.FormatInfo(opt.Recommendation))
	if opt.SensitivityNote != "" {
		fmt.Println(cli.FormatWarning(opt.SensitivityNote))
	}
	fmt.Println()

	rows := make([][]string, 0, len(opt.Rules))
	for _, r := range opt.Rules {
		rows = append(rows, []string{r.ScoreRange, string(r.Action), r.Description})
	}
	fmt.Println(cli.BoldStyle.Render("Policy rules"))
	fmt.Print(cli.RenderTable([]string{"Score range", "Action", "Description"}, rows))
	return nil
}
