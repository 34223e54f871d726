package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/rfm"
	"github.com/Veraticus/mentat/internal/segment"
)

func segmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Cluster customers into behavioral segments",
		Long: `Cluster customers on standardized RFM features with k-means, then label
each customer with a semantic segment and suggested marketing actions.`,
		RunE: runSegment,
	}

	defaults := segment.DefaultConfig()
	cmd.Flags().Int("clusters", defaults.K, "number of clusters")
	cmd.Flags().Int64("seed", defaults.Seed, "random seed for reproducible runs")
	cmd.Flags().Int("restarts", defaults.Restarts, "independent k-means restarts")
	cmd.Flags().String("reference-date", "", "recency anchor date YYYY-MM-DD")

	return cmd
}

func runSegment(cmd *cobra.Command, _ []string) error {
	cfg := segment.DefaultConfig()
	cfg.K, _ = cmd.Flags().GetInt("clusters")
	cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	cfg.Restarts, _ = cmd.Flags().GetInt("restarts")
	refFlag, _ := cmd.Flags().GetString("reference-date")

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

	result, err := segment.Segment(cmd.Context(), customers, cfg)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Customer Segments (session " + sessionID + ")"))
	if result.Silhouette != nil {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("silhouette %.3f over %d clusters", *result.Silhouette, cfg.K)))
	}
	fmt.Println()

	for _, s := range result.Summaries {
		body := fmt.Sprintf("%s\nCustomers: %d  Total value: %.2f\nAvg R/F/M: %.1f / %.1f / %.2f\nActions: %s",
			s.Characteristics,
			s.CustomerCount, s.TotalValue,
			s.AvgRecency, s.AvgFrequency, s.AvgMonetary,
			strings.Join(s.MarketingActions, "; "))
		fmt.Println(cli.RenderBox(s.SegmentName, body))
	}

	rows := make([][]string, 0, len(result.Centroids))
	for i, c := range result.Centroids {
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.1f", c[0]),
			fmt.Sprintf("%.1f", c[1]),
			fmt.Sprintf("%.2f", c[2]),
		})
	}
	fmt.Println(cli.BoldStyle.Render("Cluster centroids"))
	fmt.Print(cli.RenderTable([]string{"Cluster", "Recency", "Frequency", "Monetary"}, rows))
	return nil
}
