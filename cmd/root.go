package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danang-eats/foodsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "foodsync",
	Short: "Syncs food mentions from TikTok videos into Notion",
	Long:  "Consolidates Video Indexer OCR and Whisper speech into an evidence document, extracts dish and place mentions via Claude, and idempotently upserts them into Notion databases.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
