package stt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWhisperCLI_Defaults(t *testing.T) {
	w := NewWhisperCLI("", "", "", "")
	assert.Equal(t, "ffmpeg", w.ffmpegPath)
	assert.Equal(t, "whisper", w.whisperPath)
	assert.Equal(t, "small", w.model)
	assert.Equal(t, "vi", w.language)

	w = NewWhisperCLI("/opt/ffmpeg", "/opt/whisper", "medium", "en")
	assert.Equal(t, "/opt/ffmpeg", w.ffmpegPath)
	assert.Equal(t, "medium", w.model)
}

func TestTranscribe_MissingVideo(t *testing.T) {
	w := NewWhisperCLI("", "", "", "")
	_, err := w.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}
