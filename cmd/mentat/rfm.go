package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/Veraticus/mentat/internal/rfm"
)

func rfmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfm",
		Short: "Compute per-customer RFM features and quantile scores",
		RunE:  runRFM,
	}

	cmd.Flags().String("reference-date", "", "recency anchor date YYYY-MM-DD (default: latest timestamp in the dataset)")
	cmd.Flags().String("format", "table", "output format (table, csv)")
	cmd.Flags().Int("limit", 20, "rows shown in table output (0 = all)")

	return cmd
}

func runRFM(cmd *cobra.Command, _ []string) error {
	refFlag, _ := cmd.Flags().GetString("reference-date")
	format, _ := cmd.Flags().GetString("format")
	limit, _ := cmd.Flags().GetInt("limit")

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

	if format == "csv" {
		return writeRFMCSV(os.Stdout, customers)
	}

	summary := rfm.Summarize(customers)
	fmt.Println(cli.FormatTitle("RFM Features (session " + sessionID + ")"))
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Customers", strconv.Itoa(summary.TotalCustomers)},
		{"Avg recency", fmt.Sprintf("%.1f days", summary.AvgRecency)},
		{"Avg frequency", fmt.Sprintf("%.1f orders", summary.AvgFrequency)},
		{"Avg monetary", fmt.Sprintf("%.2f", summary.AvgMonetary)},
		{"Median recency", fmt.Sprintf("%.1f days", summary.MedianRecency)},
		{"Median frequency", fmt.Sprintf("%.1f orders", summary.MedianFrequency)},
		{"Median monetary", fmt.Sprintf("%.2f", summary.MedianMonetary)},
	}))
	fmt.Println()

	shown := customers
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	rows := make([][]string, 0, len(shown))
	for _, c := range shown {
		rows = append(rows, []string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			fmt.Sprintf("%.2f", c.Monetary),
			c.RFMScore(),
		})
	}
	fmt.Print(cli.RenderTable([]string{"Customer", "Recency", "Frequency", "Monetary", "RFM"}, rows))
	if limit > 0 && len(customers) > limit {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("... and %d more (use --limit 0 or --format csv)", len(customers)-limit)))
	}
	return nil
}

func writeRFMCSV(f *os.File, customers []model.CustomerRFM) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"customer_id", "recency", "frequency", "monetary", "r_score", "f_score", "m_score"}); err != nil {
		return fmt.Errorf("writing RFM csv: %w", err)
	}
	for _, c := range customers {
		row := []string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			strconv.FormatFloat(c.Monetary, 'f', 2, 64),
			strconv.Itoa(c.RScore),
			strconv.Itoa(c.FScore),
			strconv.Itoa(c.MScore),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing RFM csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
