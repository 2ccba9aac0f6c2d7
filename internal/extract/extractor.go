// Package extract invokes the structured-extraction service and enforces
// its schema contract on the way back.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/danang-eats/foodsync/internal/model"
	"github.com/danang-eats/foodsync/internal/resilience"
	"github.com/danang-eats/foodsync/pkg/anthropic"
)

// Extractor turns an evidence document into a structured entity graph.
type Extractor interface {
	Extract(ctx context.Context, meta model.VideoMetadata, evidenceText string) (*model.Extraction, error)
}

const systemPrompt = `You extract Vietnamese Đà Nẵng food info from TikTok-style videos.
PRIMARY signal: OCR lines (on-screen text).
SECONDARY signal: STT lines (voiceover).
Rules:
- If place info is missing, set place fields to null (place object still present or null overall).
- Only extract what is supported by evidence lines.
- Prefer Vietnamese with correct diacritics.
- Output must match the provided JSON schema strictly: all keys present, no extra keys.
- Confidence is 0..1 based on strength of evidence.
Return only JSON, no prose.`

const userPromptFormat = `VIDEO METADATA:
%s

EVIDENCE (timestamped OCR+STT lines):
%s

Extract dish mentions and any linked place/address/hours if present.
Respond with a single JSON object of this shape:
%s`

// responseShape documents the required output for the model. It mirrors the
// model.Extraction types; Decode rejects anything that deviates.
const responseShape = `{
  "video": {"video_id": string, "filename": string, "created": string|null},
  "mentions": [{
    "dish": {"canonical": string, "aliases": [string], "category": string|null},
    "place": {"name": string|null, "address": string|null, "district": string|null,
              "hours": string|null, "price_range": string|null,
              "description": string|null, "tiktok_handle": string|null} | null,
    "claims": [string],
    "evidence_ocr": [string],
    "evidence_stt": [string],
    "start_sec": number|null,
    "end_sec": number|null,
    "confidence": number
  }]
}`

// ModelExtractor implements Extractor over an Anthropic-style client.
type ModelExtractor struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// New creates a ModelExtractor for the given model id.
func New(client anthropic.Client, modelID string) *ModelExtractor {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 3
	retry.OnRetry = resilience.RetryLogger("anthropic", "extract")
	return &ModelExtractor{client: client, model: modelID, retry: retry}
}

// Extract sends the evidence to the model and decodes the response under
// the strict schema contract. Schema violations are fatal for the video.
func (e *ModelExtractor) Extract(ctx context.Context, meta model.VideoMetadata, evidenceText string) (*model.Extraction, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrap(err, "extract: marshal metadata")
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.model,
			MaxTokens: 4096,
			System:    systemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(userPromptFormat, metaJSON, evidenceText, responseShape)},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: model call")
	}
	resp.Usage.LogUsage(e.model, "extract")

	if resp.Text == "" {
		return nil, eris.New("extract: model returned empty output")
	}
	return Decode([]byte(cleanJSON(resp.Text)))
}

// Decode parses raw JSON into an Extraction, rejecting unknown fields and
// validating the schema invariants.
func Decode(raw []byte) (*model.Extraction, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var ex model.Extraction
	if err := dec.Decode(&ex); err != nil {
		return nil, eris.Wrap(err, "extract: parse response")
	}
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return &ex, nil
}

// cleanJSON strips a markdown code fence if the model wrapped its output
// in one.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
