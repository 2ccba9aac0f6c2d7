// Package pipeline orchestrates one synchronization pass: insights in,
// evidence built, entities extracted, records upserted, run recorded.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/danang-eats/foodsync/internal/evidence"
	"github.com/danang-eats/foodsync/internal/extract"
	"github.com/danang-eats/foodsync/internal/insights"
	"github.com/danang-eats/foodsync/internal/model"
	"github.com/danang-eats/foodsync/internal/store"
	"github.com/danang-eats/foodsync/internal/stt"
	foodsync "github.com/danang-eats/foodsync/internal/sync"
)

// Pipeline wires the stages together. All fields except Transcriber and
// Ledger are required; a nil Transcriber disables local speech-to-text and
// a nil Ledger disables run recording.
type Pipeline struct {
	Syncer      *foodsync.Syncer
	Extractor   extract.Extractor
	Transcriber stt.Transcriber
	STTCache    *stt.Cache
	Ledger      store.Store
	Evidence    evidence.Options
	LockDir     string
}

// Request describes one video to process.
type Request struct {
	InsightsPath string
	VideoPath    string

	// NoWhisper skips local transcription and falls back to the indexer
	// transcript embedded in the insights export.
	NoWhisper bool

	// SaveExtractedPath, when set, dumps the raw extraction JSON there
	// before any records are written.
	SaveExtractedPath string
}

// BuildEvidence runs the read-and-consolidate stages only: insights,
// speech segments, evidence pack. Shared by the full pass and the
// evidence preview command.
func (p *Pipeline) BuildEvidence(ctx context.Context, req Request) (model.VideoMetadata, evidence.Pack, error) {
	doc, err := insights.ReadFile(req.InsightsPath)
	if err != nil {
		return model.VideoMetadata{}, evidence.Pack{}, err
	}
	meta := doc.Metadata()
	if meta.VideoID == "" {
		return meta, evidence.Pack{}, eris.Errorf("pipeline: %s has no video id", req.InsightsPath)
	}

	ocrItems := doc.OCRItems(p.Evidence.MinOCRConfidence)

	segments, err := p.speechSegments(ctx, doc, meta.VideoID, req)
	if err != nil {
		return meta, evidence.Pack{}, err
	}

	pack := evidence.Build(ocrItems, segments, p.Evidence)
	zap.L().Info("pipeline: evidence built",
		zap.String("video_id", meta.VideoID),
		zap.Int("ocr_items", len(ocrItems)),
		zap.Int("stt_segments", len(segments)),
		zap.Int("evidence_lines", len(pack.Lines)),
	)
	return meta, pack, nil
}

// speechSegments returns cached or freshly transcribed speech, falling back
// to the indexer transcript when transcription is unavailable.
func (p *Pipeline) speechSegments(ctx context.Context, doc insights.Document, videoID string, req Request) ([]stt.Segment, error) {
	if req.NoWhisper || p.Transcriber == nil || req.VideoPath == "" {
		return transcriptSegments(doc.TranscriptItems(0)), nil
	}

	if p.STTCache != nil {
		segments, hit, err := p.STTCache.Load(videoID)
		if err != nil {
			return nil, err
		}
		if hit {
			zap.L().Debug("pipeline: stt cache hit", zap.String("video_id", videoID))
			return segments, nil
		}
	}

	segments, err := p.Transcriber.Transcribe(ctx, req.VideoPath)
	if err != nil {
		return nil, err
	}
	if p.STTCache != nil {
		if err := p.STTCache.Store(videoID, segments); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// transcriptSegments adapts indexer transcript items to speech segments.
func transcriptSegments(items []model.TimedText) []stt.Segment {
	var out []stt.Segment
	for _, it := range items {
		seg := stt.Segment{Text: it.Text}
		if it.StartSec != nil {
			seg.StartSec = *it.StartSec
		}
		if it.EndSec != nil {
			seg.EndSec = *it.EndSec
		}
		out = append(out, seg)
	}
	return out
}

// Run executes a full pass for one video and returns the run summary. The
// summary is also recorded in the ledger when one is configured, including
// on failure.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.RunResult, error) {
	meta, pack, err := p.BuildEvidence(ctx, req)
	if err != nil {
		return nil, err
	}

	run := p.startRun(ctx, meta.VideoID)
	result, err := p.sync(ctx, req, meta, pack)
	p.finishRun(ctx, run, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) sync(ctx context.Context, req Request, meta model.VideoMetadata, pack evidence.Pack) (*model.RunResult, error) {
	if len(pack.Lines) == 0 {
		return nil, eris.Errorf("pipeline: no evidence for video %s", meta.VideoID)
	}

	extraction, err := p.Extractor.Extract(ctx, meta, pack.Text)
	if err != nil {
		return nil, err
	}
	if req.SaveExtractedPath != "" {
		if err := saveExtraction(req.SaveExtractedPath, extraction); err != nil {
			return nil, err
		}
	}

	lock, err := AcquireVideoLock(p.LockDir, meta.VideoID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	created := meta.Created
	if extraction.Video.Created != nil && *extraction.Video.Created != "" {
		created = *extraction.Video.Created
	}

	title := meta.Filename
	if title == "" {
		title = meta.VideoID
	}
	videoPageID, err := p.Syncer.UpsertVideo(ctx, foodsync.VideoRecord{
		VideoID:    meta.VideoID,
		Title:      title,
		SourceFile: meta.Filename,
		Created:    created,
		Duration:   meta.Duration,
		OCRRaw:     pack.OCRCompact,
		STTRaw:     pack.STTCompact,
	})
	if err != nil {
		return nil, err
	}

	result := &model.RunResult{
		VideoPageID:   videoPageID,
		EvidenceLines: len(pack.Lines),
	}

	// Every mention runs its own dish and place upsert so later mentions of
	// the same entity still union in their aliases and relations; the maps
	// only keep the distinct-entity counts honest.
	seenDishes := map[string]struct{}{}
	seenPlaces := map[string]struct{}{}

	for _, mention := range extraction.Mentions {
		dishID, degraded, err := p.Syncer.UpsertDish(ctx,
			mention.Dish.Canonical, mention.Dish.Aliases, deref(mention.Dish.Category))
		if err != nil {
			return nil, err
		}
		if _, ok := seenDishes[dishID]; !ok {
			seenDishes[dishID] = struct{}{}
			result.Dishes++
		}
		if degraded {
			result.DegradedMerges++
		}

		var placeID string
		if mention.Place.HasIdentity() {
			name := strings.TrimSpace(deref(mention.Place.Name))
			if name == "" {
				name = "Unknown place"
			}
			var degraded bool
			placeID, degraded, err = p.Syncer.UpsertPlace(ctx, foodsync.PlaceRecord{
				Name:         name,
				DishIDs:      []string{dishID},
				Address:      deref(mention.Place.Address),
				District:     deref(mention.Place.District),
				Hours:        deref(mention.Place.Hours),
				PriceRange:   deref(mention.Place.PriceRange),
				Description:  deref(mention.Place.Description),
				TikTokHandle: deref(mention.Place.TikTokHandle),
			})
			if err != nil {
				return nil, err
			}
			if _, ok := seenPlaces[placeID]; !ok {
				seenPlaces[placeID] = struct{}{}
				result.Places++
			}
			if degraded {
				result.DegradedMerges++
			}
		}

		// Score flags come from the extraction's place object: a place too
		// thin to upsert can still carry hours or an address.
		var placeName string
		var hasAddress, hasHours bool
		if mention.Place != nil {
			placeName = deref(mention.Place.Name)
			hasAddress = deref(mention.Place.Address) != ""
			hasHours = deref(mention.Place.Hours) != ""
		}

		_, err = p.Syncer.CreateOrGetMention(ctx, foodsync.MentionRecord{
			Name:        foodsync.MentionKey(meta.VideoID, mention.Dish.Canonical, placeName, mention.StartSec),
			DishID:      dishID,
			PlaceID:     placeID,
			VideoPageID: videoPageID,
			EvidenceOCR: strings.Join(mention.EvidenceOCR, "\n"),
			EvidenceSTT: strings.Join(mention.EvidenceSTT, "\n"),
			Confidence:  mention.Confidence,
			Score:       foodsync.MentionScore(mention.Confidence, placeID != "", hasAddress, hasHours),
			Time:        foodsync.MentionTime(created, mention.StartSec),
		})
		if err != nil {
			return nil, err
		}
		result.Mentions++
	}

	zap.L().Info("pipeline: sync complete",
		zap.String("video_id", meta.VideoID),
		zap.String("video_page_id", videoPageID),
		zap.Int("mentions", result.Mentions),
		zap.Int("dishes", result.Dishes),
		zap.Int("places", result.Places),
		zap.Int("degraded_merges", result.DegradedMerges),
	)
	return result, nil
}

// run ledger bookkeeping; the ledger is best-effort and never fails a pass.

func (p *Pipeline) startRun(ctx context.Context, videoID string) *model.Run {
	if p.Ledger == nil {
		return nil
	}
	run, err := p.Ledger.CreateRun(ctx, videoID)
	if err != nil {
		zap.L().Warn("pipeline: record run", zap.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *model.Run, result *model.RunResult, runErr error) {
	if run == nil {
		return
	}
	status := model.RunStatusComplete
	if runErr != nil {
		status = model.RunStatusFailed
		result = &model.RunResult{Error: runErr.Error()}
	}
	if err := p.Ledger.UpdateRunResult(ctx, run.ID, status, result); err != nil {
		zap.L().Warn("pipeline: record run result", zap.Error(err))
	}
}

func saveExtraction(path string, extraction *model.Extraction) error {
	data, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal extraction")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write extraction to %s", path)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
