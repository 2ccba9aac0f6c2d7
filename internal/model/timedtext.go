// Package model holds the shared domain types for the foodsync pipeline.
package model

// TextSource identifies where a timed text item came from.
type TextSource string

const (
	SourceOCR        TextSource = "ocr"
	SourceTranscript TextSource = "vi_transcript"
)

// TimedText is one piece of on-screen or spoken text with optional timing
// and confidence. Video Indexer reports timestamps per instance, so a single
// OCR item with three instances becomes three TimedText values.
type TimedText struct {
	Source     TextSource `json:"source"`
	Text       string     `json:"text"`
	StartSec   *float64   `json:"start_sec,omitempty"`
	EndSec     *float64   `json:"end_sec,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// VideoMetadata is the top-level metadata read from an insights export.
type VideoMetadata struct {
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
	Created  string `json:"created,omitempty"`
	Duration string `json:"duration,omitempty"`
}
