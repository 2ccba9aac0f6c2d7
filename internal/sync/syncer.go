// Package sync reconciles extracted entities into the four Notion record
// tables (Video, Dish, Place, Mention) with idempotent
// query-then-create-or-merge-then-update upserts.
//
// The lookup-then-write sequence is not atomic against the store:
// concurrent synchronization of the same identity key can race and create
// duplicates. Callers must hold the per-video advisory lock (see the
// pipeline package) so only one writer works a logical entity at a time.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/danang-eats/foodsync/internal/resilience"
	"github.com/danang-eats/foodsync/pkg/notion"
)

// Databases holds the ids of the four record tables.
type Databases struct {
	Dishes   string
	Places   string
	Videos   string
	Mentions string
}

// Validate reports the first missing database id as a ConfigError.
func (d Databases) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"notion.dishes_db", d.Dishes},
		{"notion.places_db", d.Places},
		{"notion.videos_db", d.Videos},
		{"notion.mentions_db", d.Mentions},
	} {
		if f.value == "" {
			return resilience.NewConfigError(f.name)
		}
	}
	return nil
}

// Properties maps record fields to Notion property names. Every field can
// be overridden in config for workspaces with renamed columns.
type Properties struct {
	DishTitle    string
	DishAliases  string
	DishCategory string

	PlaceTitle    string
	PlaceDishRel  string
	PlaceAddress  string
	PlaceDistrict string
	PlaceHours    string
	PlacePrice    string
	PlaceDesc     string
	PlaceHandle   string

	VideoTitle      string
	VideoID         string
	VideoSourceFile string
	VideoCreated    string
	VideoDuration   string
	VideoOCRRaw     string
	VideoSTTRaw     string

	MentionTitle string
	MentionDish  string
	MentionPlace string
	MentionVideo string
	MentionEvOCR string
	MentionEvSTT string
	MentionConf  string
	MentionScore string
	MentionTime  string
}

// DefaultProperties returns the property names of the reference workspace.
func DefaultProperties() Properties {
	return Properties{
		DishTitle:    "Name",
		DishAliases:  "Aliases",
		DishCategory: "Category",

		PlaceTitle:    "Name",
		PlaceDishRel:  "Dish",
		PlaceAddress:  "Address",
		PlaceDistrict: "District",
		PlaceHours:    "Hours",
		PlacePrice:    "Price Range",
		PlaceDesc:     "Description",
		PlaceHandle:   "TikTok Handle",

		VideoTitle:      "Name",
		VideoID:         "Video ID",
		VideoSourceFile: "Source File",
		VideoCreated:    "Created",
		VideoDuration:   "Duration",
		VideoOCRRaw:     "OCR Raw",
		VideoSTTRaw:     "STT Raw",

		MentionTitle: "Name",
		MentionDish:  "Dish",
		MentionPlace: "Place",
		MentionVideo: "Video",
		MentionEvOCR: "Evidence (OCR)",
		MentionEvSTT: "Evidence (STT)",
		MentionConf:  "Confidence",
		MentionScore: "Mention Score",
		MentionTime:  "Mention Time",
	}
}

// Override applies config-supplied property name overrides. Unknown keys
// are ignored.
func (p Properties) Override(names map[string]string) Properties {
	targets := map[string]*string{
		"dish_title":    &p.DishTitle,
		"dish_aliases":  &p.DishAliases,
		"dish_category": &p.DishCategory,

		"place_title":    &p.PlaceTitle,
		"place_dish":     &p.PlaceDishRel,
		"place_address":  &p.PlaceAddress,
		"place_district": &p.PlaceDistrict,
		"place_hours":    &p.PlaceHours,
		"place_price":    &p.PlacePrice,
		"place_desc":     &p.PlaceDesc,
		"place_handle":   &p.PlaceHandle,

		"video_title":       &p.VideoTitle,
		"video_id":          &p.VideoID,
		"video_source_file": &p.VideoSourceFile,
		"video_created":     &p.VideoCreated,
		"video_duration":    &p.VideoDuration,
		"video_ocr_raw":     &p.VideoOCRRaw,
		"video_stt_raw":     &p.VideoSTTRaw,

		"mention_title":   &p.MentionTitle,
		"mention_dish":    &p.MentionDish,
		"mention_place":   &p.MentionPlace,
		"mention_video":   &p.MentionVideo,
		"mention_ev_ocr":  &p.MentionEvOCR,
		"mention_ev_stt":  &p.MentionEvSTT,
		"mention_conf":    &p.MentionConf,
		"mention_score":   &p.MentionScore,
		"mention_time":    &p.MentionTime,
	}
	for key, value := range names {
		if value == "" {
			continue
		}
		if target, ok := targets[key]; ok {
			*target = value
		}
	}
	return p
}

// defaultTextLimit bounds rich_text values; Notion rejects blocks over 2000
// characters.
const defaultTextLimit = 1900

// Syncer performs the idempotent upserts.
type Syncer struct {
	client    notion.Client
	dbs       Databases
	props     Properties
	textLimit int
}

// New builds a Syncer. A zero textLimit falls back to the default.
func New(client notion.Client, dbs Databases, props Properties, textLimit int) (*Syncer, error) {
	if err := dbs.Validate(); err != nil {
		return nil, err
	}
	if textLimit <= 0 {
		textLimit = defaultTextLimit
	}
	return &Syncer{client: client, dbs: dbs, props: props, textLimit: textLimit}, nil
}

// Truncate cuts s to at most limit characters, appending a truncation
// marker when anything was removed.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 20
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + "\n\n[TRUNCATED]"
}

// VideoRecord carries the fields written to the Video table.
type VideoRecord struct {
	VideoID    string
	Title      string
	SourceFile string
	Created    string // ISO timestamp, may be empty
	Duration   string
	OCRRaw     string
	STTRaw     string
}

// UpsertVideo looks up the video by exact Video ID and creates or refreshes
// the record. Scalar fields are last-write-wins; identity is never changed.
func (s *Syncer) UpsertVideo(ctx context.Context, rec VideoRecord) (string, error) {
	existing, err := s.firstMatch(ctx, s.dbs.Videos, notionapi.PropertyFilter{
		Property: s.props.VideoID,
		RichText: &notionapi.TextFilterCondition{Equals: rec.VideoID},
	})
	if err != nil {
		return "", eris.Wrapf(err, "sync: lookup video %s", rec.VideoID)
	}

	props := notionapi.Properties{
		s.props.VideoTitle:      notion.Title(rec.Title),
		s.props.VideoID:         notion.Text(rec.VideoID),
		s.props.VideoSourceFile: notion.Text(rec.SourceFile),
		s.props.VideoDuration:   notion.Text(rec.Duration),
		s.props.VideoOCRRaw:     notion.Text(Truncate(rec.OCRRaw, s.textLimit)),
		s.props.VideoSTTRaw:     notion.Text(Truncate(rec.STTRaw, s.textLimit)),
	}
	if t, ok := parseISO(rec.Created); ok {
		props[s.props.VideoCreated] = notion.Date(t)
	}

	if existing != nil {
		return s.update(ctx, existing, props)
	}
	return s.create(ctx, s.dbs.Videos, props)
}

// UpsertDish looks up the dish by exact canonical title and creates or
// refreshes it. Aliases are merged as a union: existing values first, new
// ones after, first-seen order, never removed. The merge degrades to
// new-values-only when the existing aliases cannot be fetched; degraded
// reports that so callers and tests can observe the fallback.
func (s *Syncer) UpsertDish(ctx context.Context, canonical string, aliases []string, category string) (id string, degraded bool, err error) {
	existing, err := s.firstMatch(ctx, s.dbs.Dishes, notion.TitleEquals(s.props.DishTitle, canonical))
	if err != nil {
		return "", false, eris.Wrapf(err, "sync: lookup dish %s", canonical)
	}

	merged := dedupeStrings(aliases)

	props := notionapi.Properties{
		s.props.DishTitle: notion.Title(canonical),
	}
	if category != "" {
		props[s.props.DishCategory] = notion.Select(category)
	}

	if existing != nil {
		page, fetchErr := s.client.RetrievePage(ctx, string(existing.ID))
		if fetchErr != nil {
			// Best-effort merge: proceed with new aliases only rather
			// than aborting the pass.
			degraded = true
			zap.L().Warn("sync: dish alias merge degraded",
				zap.String("dish", canonical),
				zap.Error(fetchErr),
			)
		} else {
			merged = dedupeStrings(append(notion.MultiSelectNames(page, s.props.DishAliases), merged...))
		}
		props[s.props.DishAliases] = notion.MultiSelect(merged)

		id, err = s.update(ctx, existing, props)
		return id, degraded, err
	}

	props[s.props.DishAliases] = notion.MultiSelect(merged)
	id, err = s.create(ctx, s.dbs.Dishes, props)
	return id, false, err
}

// PlaceRecord carries the fields written to the Place table. Optional
// fields are written only when non-empty.
type PlaceRecord struct {
	Name         string
	DishIDs      []string
	Address      string
	District     string
	Hours        string
	PriceRange   string
	Description  string
	TikTokHandle string
}

// UpsertPlace looks up the place by (name AND address) when an address is
// given, else by name alone, and creates or refreshes it. The Dish relation
// merges as a union with the same degraded-fetch policy as dish aliases.
func (s *Syncer) UpsertPlace(ctx context.Context, rec PlaceRecord) (id string, degraded bool, err error) {
	nameFilter := notion.TitleEquals(s.props.PlaceTitle, rec.Name)
	var filter notionapi.Filter = nameFilter
	if rec.Address != "" {
		filter = notionapi.AndCompoundFilter{
			nameFilter,
			notionapi.PropertyFilter{
				Property: s.props.PlaceAddress,
				RichText: &notionapi.TextFilterCondition{Equals: rec.Address},
			},
		}
	}

	existing, err := s.firstMatch(ctx, s.dbs.Places, filter)
	if err != nil {
		return "", false, eris.Wrapf(err, "sync: lookup place %s", rec.Name)
	}

	dishIDs := dedupeStrings(rec.DishIDs)

	props := notionapi.Properties{
		s.props.PlaceTitle: notion.Title(rec.Name),
	}
	for _, opt := range []struct{ name, value string }{
		{s.props.PlaceAddress, rec.Address},
		{s.props.PlaceHours, rec.Hours},
		{s.props.PlaceDesc, rec.Description},
		{s.props.PlaceHandle, rec.TikTokHandle},
	} {
		if opt.value != "" {
			props[opt.name] = notion.Text(opt.value)
		}
	}
	if rec.District != "" {
		props[s.props.PlaceDistrict] = notion.Select(rec.District)
	}
	if rec.PriceRange != "" {
		props[s.props.PlacePrice] = notion.Select(rec.PriceRange)
	}

	if existing != nil {
		page, fetchErr := s.client.RetrievePage(ctx, string(existing.ID))
		if fetchErr != nil {
			degraded = true
			zap.L().Warn("sync: place relation merge degraded",
				zap.String("place", rec.Name),
				zap.Error(fetchErr),
			)
		} else {
			dishIDs = dedupeStrings(append(notion.RelationIDs(page, s.props.PlaceDishRel), dishIDs...))
		}
		props[s.props.PlaceDishRel] = notion.Relation(dishIDs)

		id, err = s.update(ctx, existing, props)
		return id, degraded, err
	}

	props[s.props.PlaceDishRel] = notion.Relation(dishIDs)
	id, err = s.create(ctx, s.dbs.Places, props)
	return id, false, err
}

// MentionRecord carries the fields written to the Mention table.
type MentionRecord struct {
	Name        string // composite identity key, see MentionKey
	DishID      string
	PlaceID     string
	VideoPageID string
	EvidenceOCR string
	EvidenceSTT string
	Confidence  float64
	Score       float64
	Time        *time.Time
}

// CreateOrGetMention looks up the mention by its composite title key. An
// existing mention is overwritten wholesale: mentions are regenerable from
// the extraction, so there is nothing to merge.
func (s *Syncer) CreateOrGetMention(ctx context.Context, rec MentionRecord) (string, error) {
	existing, err := s.firstMatch(ctx, s.dbs.Mentions, notion.TitleEquals(s.props.MentionTitle, rec.Name))
	if err != nil {
		return "", eris.Wrapf(err, "sync: lookup mention %s", rec.Name)
	}

	props := notionapi.Properties{
		s.props.MentionTitle: notion.Title(rec.Name),
		s.props.MentionConf:  notion.Number(rec.Confidence),
		s.props.MentionScore: notion.Number(rec.Score),
		s.props.MentionEvOCR: notion.Text(Truncate(rec.EvidenceOCR, s.textLimit)),
		s.props.MentionEvSTT: notion.Text(Truncate(rec.EvidenceSTT, s.textLimit)),
		s.props.MentionVideo: notion.Relation([]string{rec.VideoPageID}),
	}
	if rec.DishID != "" {
		props[s.props.MentionDish] = notion.Relation([]string{rec.DishID})
	}
	if rec.PlaceID != "" {
		props[s.props.MentionPlace] = notion.Relation([]string{rec.PlaceID})
	}
	if rec.Time != nil {
		props[s.props.MentionTime] = notion.Date(*rec.Time)
	}

	if existing != nil {
		return s.update(ctx, existing, props)
	}
	return s.create(ctx, s.dbs.Mentions, props)
}

// MentionKey builds the composite identity key for a mention:
// "video | dish | place-or-Unknown | start-or-NA".
func MentionKey(videoID, canonical string, placeName string, startSec *float64) string {
	place := placeName
	if place == "" {
		place = "Unknown"
	}
	start := "NA"
	if startSec != nil {
		start = fmt.Sprintf("%.1f", *startSec)
	}
	return fmt.Sprintf("%s | %s | %s | %s", videoID, canonical, place, start)
}

// MentionTime offsets the video's created timestamp by the mention start.
// Returns nil when either part is missing or unparsable.
func MentionTime(createdISO string, startSec *float64) *time.Time {
	if startSec == nil {
		return nil
	}
	t, ok := parseISO(createdISO)
	if !ok {
		return nil
	}
	at := t.Add(time.Duration(*startSec * float64(time.Second)))
	return &at
}

// helpers

func (s *Syncer) firstMatch(ctx context.Context, dbID string, filter notionapi.Filter) (*notionapi.Page, error) {
	resp, err := s.client.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (s *Syncer) update(ctx context.Context, existing *notionapi.Page, props notionapi.Properties) (string, error) {
	page, err := s.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return "", eris.Wrap(err, "sync: update page")
	}
	return string(page.ID), nil
}

func (s *Syncer) create(ctx context.Context, dbID string, props notionapi.Properties) (string, error) {
	page, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrap(err, "sync: create page")
	}
	return string(page.ID), nil
}

// dedupeStrings removes duplicates and blank values, preserving first-seen
// order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func parseISO(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
