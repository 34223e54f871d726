package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/mentat/internal/cli"
	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/ingest"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a transaction ledger CSV into a new session",
		Long: `Import a retail transaction ledger from CSV.

Rows that cannot feed the analyses are dropped and counted per reason:
cancelled invoices, non-positive quantity or price, missing identifiers,
and unparseable timestamps.

Examples:
  mentat import ~/data/online_retail.csv
  mentat import --dry-run ~/data/online_retail.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Parse and report without saving a session")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reading ledger...[reset]"),
	)

	batch, stats, err := ingest.ReadLedger(f, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", path, err)
	}

	common.LogInfo("Ledger parsed", common.Fields{
		"file":           filepath.Base(path),
		"usable_rows":    len(batch),
		"dropped":        stats.Total(),
		"cancelled":      stats.Cancelled,
		"non_positive":   stats.NonPositive,
		"missing_fields": stats.MissingFields,
		"bad_timestamps": stats.BadTimestamps,
	})

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d usable rows, %d dropped (not saved)", len(batch), stats.Total())))
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessionID, err := store.Save(cmd.Context(), filepath.Base(path), batch)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d rows into session %s", len(batch), sessionID)))
	if stats.Total() > 0 {
		fmt.Println(cli.StyleWarning(fmt.Sprintf("  Dropped %d rows (%d cancelled, %d non-positive, %d missing fields, %d bad timestamps)",
			stats.Total(), stats.Cancelled, stats.NonPositive, stats.MissingFields, stats.BadTimestamps)))
	}
	return nil
}
