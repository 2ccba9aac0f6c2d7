// Package stt provides speech-to-text segments for a video, with a
// file-backed memo cache so a video is only ever transcribed once.
package stt

import "context"

// Segment is one timed span of transcribed speech.
type Segment struct {
	StartSec   float64  `json:"start_sec"`
	EndSec     float64  `json:"end_sec"`
	Text       string   `json:"text"`
	AvgLogProb *float64 `json:"avg_logprob,omitempty"`
}

// Transcriber produces speech segments for a video file.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) ([]Segment, error)
}
