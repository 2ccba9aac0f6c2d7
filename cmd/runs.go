package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/danang-eats/foodsync/internal/model"
	"github.com/danang-eats/foodsync/internal/store"
)

var (
	runsVideoID string
	runsStatus  string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded synchronization runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledger, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if err := ledger.Migrate(ctx); err != nil {
			return err
		}

		runs, err := ledger.ListRuns(ctx, store.RunFilter{
			VideoID: runsVideoID,
			Status:  model.RunStatus(runsStatus),
			Limit:   runsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsVideoID, "video-id", "", "filter by video id")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, complete, failed)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
