package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// Typed builders for each Notion field kind the record tables use. Keeping
// construction behind these keeps the synchronizer free of raw property
// literals.

// Title builds a title property.
func Title(text string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: text}}},
	}
}

// Text builds a rich_text property.
func Text(text string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: text}}},
	}
}

// Number builds a number property.
func Number(n float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: n}
}

// Date builds a date property from a point in time.
func Date(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// Select builds a single-select property.
func Select(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

// MultiSelect builds a multi-select property, skipping empty names.
func MultiSelect(names []string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		if n != "" {
			opts = append(opts, notionapi.Option{Name: n})
		}
	}
	return notionapi.MultiSelectProperty{MultiSelect: opts}
}

// Relation builds a relation property, skipping empty ids.
func Relation(pageIDs []string) notionapi.RelationProperty {
	rels := make([]notionapi.Relation, 0, len(pageIDs))
	for _, id := range pageIDs {
		if id != "" {
			rels = append(rels, notionapi.Relation{ID: notionapi.PageID(id)})
		}
	}
	return notionapi.RelationProperty{Relation: rels}
}

// Readers for pulling current values back out of a retrieved page. Each
// tolerates a missing or differently-typed property by returning the zero
// value; merge callers treat that as "nothing existing".

// TitleValue returns the plain text of a title property.
func TitleValue(page *notionapi.Page, name string) string {
	if page == nil {
		return ""
	}
	if p, ok := page.Properties[name].(*notionapi.TitleProperty); ok {
		return richTextPlain(p.Title)
	}
	return ""
}

// RichTextValue returns the plain text of a rich_text property.
func RichTextValue(page *notionapi.Page, name string) string {
	if page == nil {
		return ""
	}
	if p, ok := page.Properties[name].(*notionapi.RichTextProperty); ok {
		return richTextPlain(p.RichText)
	}
	return ""
}

// MultiSelectNames returns the option names of a multi-select property.
func MultiSelectNames(page *notionapi.Page, name string) []string {
	if page == nil {
		return nil
	}
	p, ok := page.Properties[name].(*notionapi.MultiSelectProperty)
	if !ok {
		return nil
	}
	var names []string
	for _, opt := range p.MultiSelect {
		if opt.Name != "" {
			names = append(names, opt.Name)
		}
	}
	return names
}

// RelationIDs returns the related page ids of a relation property.
func RelationIDs(page *notionapi.Page, name string) []string {
	if page == nil {
		return nil
	}
	p, ok := page.Properties[name].(*notionapi.RelationProperty)
	if !ok {
		return nil
	}
	var ids []string
	for _, rel := range p.Relation {
		if rel.ID != "" {
			ids = append(ids, string(rel.ID))
		}
	}
	return ids
}

func richTextPlain(rts []notionapi.RichText) string {
	var parts []string
	for _, rt := range rts {
		switch {
		case rt.PlainText != "":
			parts = append(parts, rt.PlainText)
		case rt.Text != nil:
			parts = append(parts, rt.Text.Content)
		}
	}
	return strings.Join(parts, "")
}
