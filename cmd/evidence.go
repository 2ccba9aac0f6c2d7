package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danang-eats/foodsync/internal/evidence"
	"github.com/danang-eats/foodsync/internal/pipeline"
	"github.com/danang-eats/foodsync/internal/stt"
)

var (
	evidenceInsights  string
	evidenceVideo     string
	evidenceNoWhisper bool
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Print the consolidated evidence document without writing records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := stt.NewCache(cfg.Whisper.CacheDir)
		if err != nil {
			return err
		}

		p := &pipeline.Pipeline{
			Transcriber: stt.NewWhisperCLI(
				cfg.Whisper.FFmpegPath, cfg.Whisper.WhisperPath,
				cfg.Whisper.Model, cfg.Whisper.Language,
			),
			STTCache: cache,
			Evidence: evidence.Options{
				MinOCRConfidence: cfg.Evidence.MinOCRConfidence,
				MaxChars:         cfg.Evidence.MaxChars,
				DedupeThreshold:  cfg.Evidence.DedupeThreshold,
			},
		}

		meta, pack, err := p.BuildEvidence(cmd.Context(), pipeline.Request{
			InsightsPath: evidenceInsights,
			VideoPath:    evidenceVideo,
			NoWhisper:    evidenceNoWhisper,
		})
		if err != nil {
			return err
		}

		zap.L().Info("evidence built",
			zap.String("video_id", meta.VideoID),
			zap.Int("lines", len(pack.Lines)),
			zap.Int("chars", len(pack.Text)),
		)
		fmt.Println(pack.Text)
		return nil
	},
}

func init() {
	evidenceCmd.Flags().StringVar(&evidenceInsights, "insights", "", "Video Indexer insights JSON path (required)")
	evidenceCmd.Flags().StringVar(&evidenceVideo, "video", "", "video file for local transcription")
	evidenceCmd.Flags().BoolVar(&evidenceNoWhisper, "no-whisper", false, "skip local transcription, use the indexer transcript")
	_ = evidenceCmd.MarkFlagRequired("insights")
	rootCmd.AddCommand(evidenceCmd)
}
