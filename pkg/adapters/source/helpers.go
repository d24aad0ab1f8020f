package source

import (
	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// FilterSelected restricts adapter-mapped rows and fields to the user's
// selection. An empty selection keeps every field. Keys absent from a given
// row are omitted, not nulled.
func FilterSelected(rows []ingest.Row, fields, selected []string) ([]ingest.Row, []string) {
	if len(selected) == 0 {
		return rows, fields
	}

	allowed := make(map[string]bool, len(selected))
	for _, f := range selected {
		allowed[f] = true
	}

	outFields := make([]string, 0, len(selected))
	for _, f := range fields {
		if allowed[f] {
			outFields = append(outFields, f)
		}
	}

	outRows := make([]ingest.Row, len(rows))
	for i, row := range rows {
		filtered := make(ingest.Row, len(outFields))
		for _, f := range outFields {
			if v, ok := row[f]; ok {
				filtered[f] = v
			}
		}
		outRows[i] = filtered
	}
	return outRows, outFields
}

// MergeDisplayNames resolves display names for the given fields: explicit
// user overrides win, then adapter defaults, then the trailing path segment.
func MergeDisplayNames(fields []string, defaults, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if name, ok := overrides[f]; ok {
			out[f] = name
			continue
		}
		if name, ok := defaults[f]; ok {
			out[f] = name
			continue
		}
		out[f] = ingest.DefaultDisplayName(f)
	}
	return out
}
