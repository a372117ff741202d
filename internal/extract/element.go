// Package extract talks to the external document extractor and normalizes
// its elements into flat rows.
package extract

import (
	"encoding/json"

	"github.com/joseph-ayodele/docingest/internal/rows"
)

// Element is one unit of structured content returned by the extractor. The
// metadata payload is an open map: a few well-known fields are lifted into
// columns, everything else rides along serialized verbatim, so extractor
// schema additions never break normalization.
type Element struct {
	Type      string         `json:"type"`
	ElementID string         `json:"element_id,omitempty"`
	Text      string         `json:"text,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Well-known metadata fields lifted into their own columns.
const (
	metaSource     = "source"
	metaPageNumber = "page_number"
	metaURL        = "url"
)

// Columns is the stable column set every normalized row carries, in output
// order. The index column records the element's original position so order
// can be recovered independent of storage order.
var Columns = []string{"index", "type", "element_id", "text", "source", "page_number", "url", "metadata_json"}

// NormalizeRows maps elements 1:1 into rows with the consistent column set.
// Missing optional fields become nil, never omitted.
func NormalizeRows(elements []Element) []rows.Row {
	out := make([]rows.Row, 0, len(elements))
	for i, el := range elements {
		row := rows.Row{
			"index":         i,
			"type":          el.Type,
			"element_id":    nullable(el.ElementID),
			"text":          nullable(el.Text),
			"source":        nil,
			"page_number":   nil,
			"url":           nil,
			"metadata_json": nil,
		}
		extra := make(map[string]any)
		for k, v := range el.Metadata {
			switch k {
			case metaSource:
				row["source"] = v
			case metaPageNumber:
				row["page_number"] = v
			case metaURL:
				row["url"] = v
			default:
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			if raw, err := json.Marshal(extra); err == nil {
				row["metadata_json"] = string(raw)
			}
		}
		out = append(out, row)
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
