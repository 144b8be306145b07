package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
)

func backupCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		Long: `Snapshot the database to a file. Without --output the snapshot goes to
a "backups" directory next to the database.`,
		Example: `  # Back up before trying a new configuration
  planner backup

  # Back up to a specific file
  planner backup --output ~/planner-before-upgrade.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.store.Backup(ctx, dest)
			if err != nil {
				return fmt.Errorf("failed to back up database: %w", err)
			}

			fmt.Printf("%s Backed up to %s (%s, schema v%d)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.Path),
				formatFileSize(info.FileSize),
				info.SchemaVersion)

			tables := make([]string, 0, len(info.RowCounts))
			for name := range info.RowCounts {
				tables = append(tables, name)
			}
			sort.Strings(tables)

			t := cli.NewTable(os.Stdout, "TABLE", "ROWS")
			for _, name := range tables {
				t.Row(name, strconv.Itoa(info.RowCounts[name]))
			}
			return t.Flush()
		},
	}

	cmd.Flags().StringVarP(&dest, "output", "o", "", "backup file path")
	return cmd
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
