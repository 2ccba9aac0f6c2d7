package notion

import (
	"encoding/json"

	"github.com/jomei/notionapi"
)

// TitleFilter matches a title property by exact text. notionapi's
// PropertyFilter carries no title condition, so this marshals the
// {"property": ..., "title": {"equals": ...}} shape the query endpoint
// expects. Embedding PropertyFilter lets it stand anywhere a query filter
// can, alone or inside a compound filter.
type TitleFilter struct {
	notionapi.PropertyFilter

	Equals string
}

// TitleEquals builds an exact-match filter on a title property.
func TitleEquals(property, text string) TitleFilter {
	return TitleFilter{
		PropertyFilter: notionapi.PropertyFilter{Property: property},
		Equals:         text,
	}
}

func (f TitleFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Property string                        `json:"property"`
		Title    notionapi.TextFilterCondition `json:"title"`
	}{
		Property: f.Property,
		Title:    notionapi.TextFilterCondition{Equals: f.Equals},
	})
}
