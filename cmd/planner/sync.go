package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [item-id]",
		Short: "Pull new transactions from connected banks",
		Long: `Sync transactions from Plaid. Without arguments every connected bank is
synced; pass an item id to sync a single connection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var results []planner.SyncSummary
			if len(args) == 1 {
				summary, err := a.planner.SyncItem(ctx, a.user(), args[0])
				if err != nil {
					return err
				}
				results = []planner.SyncSummary{*summary}
			} else {
				results, err = a.planner.SyncAll(ctx, a.user())
				if err != nil {
					return err
				}
			}

			if len(results) == 0 {
				fmt.Println(cli.FormatInfo("No bank connections. Run 'planner link' first."))
				return nil
			}
			return printSyncResults(results)
		},
	}
}

func printSyncResults(results []planner.SyncSummary) error {
	fmt.Println(cli.FormatTitle("Sync Results"))
	table := cli.NewTable(os.Stdout, "INSTITUTION", "ADDED", "MODIFIED", "REMOVED", "STATUS")
	failed := 0
	for _, r := range results {
		status := cli.SuccessStyle.Render(cli.SuccessIcon)
		if r.Error != "" {
			failed++
			status = cli.ErrorStyle.Render(r.Error)
		}
		name := r.Institution
		if name == "" {
			name = r.ItemID
		}
		table.Row(name, strconv.Itoa(r.Added), strconv.Itoa(r.Modified), strconv.Itoa(r.Removed), status)
	}
	if err := table.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d of %d connections failed to sync", failed, len(results))))
	}
	return nil
}

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX files exported from your bank.

Examples:
  planner import-ofx ~/Downloads/checking_jan.qfx
  planner import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := cli.NewProgressBar(os.Stderr, len(files), "Importing")
	var (
		imported int
		accounts = make(map[string]bool)
		failures []string
	)
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := importFile(cmd, a, path)
		_ = bar.Add(1)
		if err != nil {
			slog.Warn("Failed to import file", "file", path, "error", err)
			failures = append(failures, filepath.Base(path))
			continue
		}
		imported += result.Imported
		for _, acct := range result.Accounts {
			accounts[acct] = true
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions across %d accounts", imported, len(accounts))))
	if len(failures) > 0 {
		return fmt.Errorf("failed to import %d files: %s", len(failures), strings.Join(failures, ", "))
	}
	return nil
}

func importFile(cmd *cobra.Command, a *app, path string) (*planner.ImportResult, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return a.planner.ImportStatement(cmd.Context(), a.user(), f)
}

// expandFiles resolves glob patterns. A pattern with no matches is kept if
// it names an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
