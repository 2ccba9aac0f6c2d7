package stt

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// cacheDocument is the on-disk shape of a cached transcript.
type cacheDocument struct {
	Segments []Segment `json:"segments"`
}

// Cache memoizes transcripts as JSON files keyed by video id. Presence of
// the file short-circuits re-transcription.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "stt: create cache dir %s", dir)
	}
	return &Cache{dir: dir}, nil
}

// Path returns the cache file path for a video id.
func (c *Cache) Path(videoID string) string {
	return filepath.Join(c.dir, "whisper_"+videoID+".json")
}

// Load returns the cached segments for videoID, or (nil, false) on a miss.
// A corrupt cache file is an error rather than a silent miss.
func (c *Cache) Load(videoID string) ([]Segment, bool, error) {
	data, err := os.ReadFile(c.Path(videoID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "stt: read cache for %s", videoID)
	}
	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, eris.Wrapf(err, "stt: parse cache for %s", videoID)
	}
	return doc.Segments, true, nil
}

// Store writes segments to the cache file for videoID.
func (c *Cache) Store(videoID string, segments []Segment) error {
	data, err := json.MarshalIndent(cacheDocument{Segments: segments}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "stt: marshal cache")
	}
	if err := os.WriteFile(c.Path(videoID), data, 0o644); err != nil {
		return eris.Wrapf(err, "stt: write cache for %s", videoID)
	}
	return nil
}
