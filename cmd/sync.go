package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danang-eats/foodsync/internal/evidence"
	"github.com/danang-eats/foodsync/internal/extract"
	"github.com/danang-eats/foodsync/internal/pipeline"
	"github.com/danang-eats/foodsync/internal/store"
	"github.com/danang-eats/foodsync/internal/stt"
	foodsync "github.com/danang-eats/foodsync/internal/sync"
	anthropicpkg "github.com/danang-eats/foodsync/pkg/anthropic"
	"github.com/danang-eats/foodsync/pkg/notion"
)

var (
	syncInsights      string
	syncVideo         string
	syncNoWhisper     bool
	syncSaveExtracted string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the full pass for one video",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledger, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if err := ledger.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		p, err := buildPipeline(ledger)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, pipeline.Request{
			InsightsPath:      syncInsights,
			VideoPath:         syncVideo,
			NoWhisper:         syncNoWhisper,
			SaveExtractedPath: syncSaveExtracted,
		})
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		zap.L().Info("sync complete",
			zap.String("video_page_id", result.VideoPageID),
			zap.Int("mentions", result.Mentions),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// buildPipeline wires clients and stages from config. The ledger is
// optional so the evidence preview can run without one.
func buildPipeline(ledger store.Store) (*pipeline.Pipeline, error) {
	notionClient := notion.NewClient(cfg.Notion.Token)
	syncer, err := foodsync.New(notionClient,
		foodsync.Databases{
			Dishes:   cfg.Notion.DishesDB,
			Places:   cfg.Notion.PlacesDB,
			Videos:   cfg.Notion.VideosDB,
			Mentions: cfg.Notion.MentionsDB,
		},
		foodsync.DefaultProperties().Override(cfg.Notion.Properties),
		cfg.Notion.TextLimit,
	)
	if err != nil {
		return nil, err
	}

	cache, err := stt.NewCache(cfg.Whisper.CacheDir)
	if err != nil {
		return nil, err
	}

	return &pipeline.Pipeline{
		Syncer:    syncer,
		Extractor: extract.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model),
		Transcriber: stt.NewWhisperCLI(
			cfg.Whisper.FFmpegPath, cfg.Whisper.WhisperPath,
			cfg.Whisper.Model, cfg.Whisper.Language,
		),
		STTCache: cache,
		Ledger:   ledger,
		Evidence: evidence.Options{
			MinOCRConfidence: cfg.Evidence.MinOCRConfidence,
			MaxChars:         cfg.Evidence.MaxChars,
			DedupeThreshold:  cfg.Evidence.DedupeThreshold,
		},
		LockDir: filepath.Join(os.TempDir(), "foodsync-locks"),
	}, nil
}

func init() {
	syncCmd.Flags().StringVar(&syncInsights, "insights", "", "Video Indexer insights JSON path (required)")
	syncCmd.Flags().StringVar(&syncVideo, "video", "", "video file for local transcription")
	syncCmd.Flags().BoolVar(&syncNoWhisper, "no-whisper", false, "skip local transcription, use the indexer transcript")
	syncCmd.Flags().StringVar(&syncSaveExtracted, "save-extracted", "", "write the raw extraction JSON to this path")
	_ = syncCmd.MarkFlagRequired("insights")
	rootCmd.AddCommand(syncCmd)
}
