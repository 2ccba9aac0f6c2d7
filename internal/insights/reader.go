// Package insights reads Azure Video Indexer insight exports and flattens
// the OCR and transcript blocks into timed text items.
package insights

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/danang-eats/foodsync/internal/model"
)

// Document is a parsed insights export. The Video Indexer JSON shape varies
// between API versions, so everything is read through safe traversal
// helpers rather than a rigid struct.
type Document map[string]any

// ReadFile loads and parses an insights JSON export.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "insights: read %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "insights: parse %s", path)
	}
	return doc, nil
}

// TimecodeSeconds parses a Video Indexer timecode like "0:00:03.0333333"
// into seconds. The second return value is false when the string does not
// look like a timecode.
func TimecodeSeconds(tc string) (float64, bool) {
	parts := strings.Split(tc, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}

// Metadata extracts the top-level video metadata.
func (d Document) Metadata() model.VideoMetadata {
	return model.VideoMetadata{
		VideoID:  stringAt(d, "id"),
		Filename: stringAt(d, "name"),
		Created:  stringAt(d, "created"),
		Duration: stringAt(d, "duration"),
	}
}

// OCRItems flattens the OCR block into one TimedText per (item x instance).
// It prefers videos[0].insights.ocr and falls back to summarizedInsights.ocr.
// Items with confidence below minConf are dropped; items without confidence
// are kept.
func (d Document) OCRItems(minConf float64) []model.TimedText {
	items := d.primaryInsights()["ocr"]
	if asList(items) == nil {
		items = dig(d, "summarizedInsights", "ocr")
	}
	return flattenTimed(asList(items), model.SourceOCR, minConf)
}

// TranscriptItems flattens the Video Indexer transcript the same way.
func (d Document) TranscriptItems(minConf float64) []model.TimedText {
	return flattenTimed(asList(d.primaryInsights()["transcript"]), model.SourceTranscript, minConf)
}

func (d Document) primaryInsights() map[string]any {
	videos := asList(d["videos"])
	if len(videos) == 0 {
		return map[string]any{}
	}
	ins := asMap(asMap(videos[0])["insights"])
	if ins == nil {
		return map[string]any{}
	}
	return ins
}

func flattenTimed(items []any, source model.TextSource, minConf float64) []model.TimedText {
	var out []model.TimedText
	for _, raw := range items {
		item := asMap(raw)
		if item == nil {
			continue
		}
		text := strings.TrimSpace(stringAt(item, "text"))
		if text == "" {
			continue
		}

		var conf *float64
		if c, ok := item["confidence"].(float64); ok {
			if c < minConf {
				continue
			}
			conf = &c
		}

		instances := asList(item["instances"])
		if len(instances) == 0 {
			out = append(out, model.TimedText{Source: source, Text: text, Confidence: conf})
			continue
		}
		for _, rawInst := range instances {
			inst := asMap(rawInst)
			if inst == nil {
				continue
			}
			out = append(out, model.TimedText{
				Source:     source,
				Text:       text,
				StartSec:   timecodeAt(inst, "start"),
				EndSec:     timecodeAt(inst, "end"),
				Confidence: conf,
			})
		}
	}
	return out
}

// traversal helpers

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func timecodeAt(m map[string]any, key string) *float64 {
	sec, ok := TimecodeSeconds(stringAt(m, key))
	if !ok {
		return nil
	}
	return &sec
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		inner := asMap(cur)
		if inner == nil {
			return nil
		}
		cur = inner[k]
	}
	return cur
}
