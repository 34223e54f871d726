package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/churn"
	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/rfm"
)

func churnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "Flag customers at risk of churning",
		Long: `Flag customers whose recency is high and frequency low relative to the
population, score each one, and suggest retention actions.`,
		RunE: runChurn,
	}

	defaults := churn.DefaultConfig()
	cmd.Flags().Float64("recency-pct", defaults.RecencyPct, "recency percentile above which customers are stale")
	cmd.Flags().Float64("frequency-pct", defaults.FrequencyPct, "frequency percentile below which customers are infrequent")
	cmd.Flags().String("reference-date", "", "recency anchor date YYYY-MM-DD")
	cmd.Flags().String("format", "table", "output format (table, csv)")

	return cmd
}

func runChurn(cmd *cobra.Command, _ []string) error {
	cfg := churn.DefaultConfig()
	cfg.RecencyPct, _ = cmd.Flags().GetFloat64("recency-pct")
	cfg.FrequencyPct, _ = cmd.Flags().GetFloat64("frequency-pct")
	refFlag, _ := cmd.Flags().GetString("reference-date")
	format, _ := cmd.Flags().GetString("format")

	ref, err := parseReferenceDate(refFlag)
	if err != nil {
		return err
	}

	batch, sessionID, err := loadSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	customers, err := rfm.Compute(batch, rfm.Options{ReferenceDate: ref})
	if err != nil {
		return err
	}

	result, err := churn.Score(customers, cfg)
	if err != nil {
		return err
	}

	if format == "csv" {
		return writeChurnCSV(os.Stdout, result)
	}

	s := result.Summary
	level := cli.StyleSuccess(s.RiskLevel)
	switch s.RiskLevel {
	case churn.RiskHigh:
		level = cli.StyleError(s.RiskLevel)
	case churn.RiskMedium:
		level = cli.StyleWarning(s.RiskLevel)
	}

	fmt.Println(cli.FormatTitle("Churn Risk (session " + sessionID + ")"))
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Risk level", level},
		{"At-risk customers", fmt.Sprintf("%d of %d (%.1f%%)", s.AtRiskCount, s.TotalCustomers, s.RiskPercentage)},
		{"Avg risk score", fmt.Sprintf("%.1f", s.AvgRiskScore)},
		{"Value at risk", fmt.Sprintf("%.2f", s.ValueAtRisk)},
		{"Recency cutoff", fmt.Sprintf("%.1f days", result.RecencyThreshold)},
		{"Frequency cutoff", fmt.Sprintf("%.1f orders", result.FrequencyThreshold)},
	}))
	fmt.Println()

	rows := make([][]string, 0, len(result.AtRisk))
	for _, a := range result.AtRisk {
		rows = append(rows, []string{
			a.Customer.CustomerID,
			strconv.Itoa(a.Customer.Recency),
			strconv.Itoa(a.Customer.Frequency),
			fmt.Sprintf("%.2f", a.Customer.Monetary),
			fmt.Sprintf("%.1f", a.Score),
			strings.Join(a.Actions, "; "),
		})
	}
	fmt.Print(cli.RenderTable([]string{"Customer", "Recency", "Frequency", "Monetary", "Score", "Actions"}, rows))

	if len(result.Recommendations) > 0 {
		fmt.Println()
		for _, rec := range result.Recommendations {
			fmt.Println(cli.FormatInfo(rec))
		}
	}
	return nil
}

func writeChurnCSV(f *os.File, result *churn.Result) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"customer_id", "recency", "frequency", "monetary", "risk_score", "actions"}); err != nil {
		return fmt.Errorf("writing churn csv: %w", err)
	}
	for _, a := range result.AtRisk {
		row := []string{
			a.Customer.CustomerID,
			strconv.Itoa(a.Customer.Recency),
			strconv.Itoa(a.Customer.Frequency),
			strconv.FormatFloat(a.Customer.Monetary, 'f', 2, 64),
			strconv.FormatFloat(a.Score, 'f', 1, 64),
			strings.Join(a.Actions, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing churn csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
