package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// WhisperCLI transcribes video audio by extracting a mono 16 kHz wav with
// ffmpeg and running the whisper CLI with JSON output.
type WhisperCLI struct {
	ffmpegPath  string
	whisperPath string
	model       string
	language    string
}

// NewWhisperCLI creates a transcriber. Empty binary paths fall back to
// "ffmpeg" and "whisper" on PATH; empty model and language fall back to
// "small" and "vi".
func NewWhisperCLI(ffmpegPath, whisperPath, modelSize, language string) *WhisperCLI {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if whisperPath == "" {
		whisperPath = "whisper"
	}
	if modelSize == "" {
		modelSize = "small"
	}
	if language == "" {
		language = "vi"
	}
	return &WhisperCLI{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		model:       modelSize,
		language:    language,
	}
}

// whisperOutput matches the JSON the whisper CLI writes alongside the input.
type whisperOutput struct {
	Segments []struct {
		Start      float64  `json:"start"`
		End        float64  `json:"end"`
		Text       string   `json:"text"`
		AvgLogProb *float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Transcribe extracts audio from videoPath and runs whisper on it.
func (w *WhisperCLI) Transcribe(ctx context.Context, videoPath string) ([]Segment, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, eris.Wrapf(err, "stt: video not found %s", videoPath)
	}

	workDir, err := os.MkdirTemp("", "foodsync-stt-")
	if err != nil {
		return nil, eris.Wrap(err, "stt: create temp dir")
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "audio.wav")
	if err := w.extractWav(ctx, videoPath, wavPath); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, w.whisperPath,
		wavPath,
		"--model", w.model,
		"--language", w.language,
		"--output_format", "json",
		"--output_dir", workDir,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "stt: whisper failed: %s", stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return nil, eris.Wrap(err, "stt: read whisper output")
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "stt: parse whisper output")
	}

	var segments []Segment
	for _, s := range out.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			StartSec:   s.Start,
			EndSec:     s.End,
			Text:       text,
			AvgLogProb: s.AvgLogProb,
		})
	}
	return segments, nil
}

func (w *WhisperCLI) extractWav(ctx context.Context, videoPath, wavPath string) error {
	cmd := exec.CommandContext(ctx, w.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		wavPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "stt: ffmpeg failed for %s: %s", videoPath, stderr.String())
	}
	return nil
}
