package model

import "github.com/rotisserie/eris"

// Extraction is the structured entity graph returned by the extraction
// service. The shape is a strict schema contract: all keys are required,
// values may be null, unknown keys are rejected at decode time.
type Extraction struct {
	Video    ExtractedVideo `json:"video"`
	Mentions []Mention      `json:"mentions"`
}

// ExtractedVideo identifies the video the mentions belong to.
type ExtractedVideo struct {
	VideoID  string  `json:"video_id"`
	Filename string  `json:"filename"`
	Created  *string `json:"created"`
}

// Dish is one dish as extracted for a single mention. Canonical is the
// identity key; aliases accumulate across runs via set union.
type Dish struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
	Category  *string  `json:"category"`
}

// Place describes where a dish can be found. The whole object may be null
// for a mention. Identity is (name, address) when an address is present,
// else name alone.
type Place struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	District     *string `json:"district"`
	Hours        *string `json:"hours"`
	PriceRange   *string `json:"price_range"`
	Description  *string `json:"description"`
	TikTokHandle *string `json:"tiktok_handle"`
}

// HasIdentity reports whether the place carries enough information to be
// worth a record of its own.
func (p *Place) HasIdentity() bool {
	if p == nil {
		return false
	}
	return (p.Name != nil && *p.Name != "") || (p.Address != nil && *p.Address != "")
}

// Mention is one detected dish reference within a video.
type Mention struct {
	Dish        Dish     `json:"dish"`
	Place       *Place   `json:"place"`
	Claims      []string `json:"claims"`
	EvidenceOCR []string `json:"evidence_ocr"`
	EvidenceSTT []string `json:"evidence_stt"`
	StartSec    *float64 `json:"start_sec"`
	EndSec      *float64 `json:"end_sec"`
	Confidence  float64  `json:"confidence"`
}

// Validate checks the extraction against the schema contract. A failure
// here is fatal for the video: no partial acceptance of malformed graphs.
func (e *Extraction) Validate() error {
	if e.Video.VideoID == "" {
		return eris.New("extraction: video.video_id is empty")
	}
	for i, m := range e.Mentions {
		if m.Dish.Canonical == "" {
			return eris.Errorf("extraction: mention %d has empty dish.canonical", i)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return eris.Errorf("extraction: mention %d confidence %.3f outside [0,1]", i, m.Confidence)
		}
	}
	return nil
}
