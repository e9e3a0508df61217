// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/imgconv/internal/config"
	"github.com/pdiddy/imgconv/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or export past conversion runs",
	Long: `History reads the run database (general.history_db, default
.imgconv/history.db). Every convert and heif2jpg run is recorded with its
counts and the outcome of each file.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.List(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %9s  %9s  %6s\n",
			"ID", "Started", "Pair", "Attempted", "Succeeded", "Failed")
		for _, r := range runs {
			fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %9d  %9d  %6d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.InputFormat+"->"+r.OutputFormat, r.Attempted, r.Succeeded, r.Failed)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write recent runs with their per-file outcomes as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		switch format {
		case "yaml", "":
			return store.ExportYAML(context.Background(), os.Stdout, limit)
		case "json":
			return store.ExportJSON(context.Background(), os.Stdout, limit)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
	},
}

// openHistory opens the database named by --db, falling back to the
// configured general.history_db.
func openHistory(cmd *cobra.Command) (*history.Store, error) {
	db, _ := cmd.Flags().GetString("db")
	if db == "" {
		path, _ := cmd.Flags().GetString("config")
		if cfg, err := config.Load(path); err == nil {
			db = cfg.HistoryDB
		}
	}
	if db == "" {
		db = config.Default().General.HistoryDB
	}
	return history.Open(db)
}

func init() {
	historyCmd.PersistentFlags().String("db", "", "history database (default: general.history_db from the configuration)")
	historyCmd.PersistentFlags().Int("limit", 20, "maximum number of runs")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
