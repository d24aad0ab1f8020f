package ingest

import (
	"strings"

	"github.com/dashly-io/dashly-engine/pkg/jsonutil"
)

// Flatten normalizes a JSON payload into flat records.
//
// Array payloads flatten each element independently: nested non-array objects
// merge into the parent key space under "parent.key" paths in a single pass.
// Deeper nesting and arrays inside an element stay intact at their key; the
// rendering policy stringifies them for display.
//
// Object payloads take a different path entirely: one row per top-level key,
// shaped as {name, value}. That transposition exists for scalar summary
// objects and must not be merged with the array path.
//
// A non-empty selection filters every row to the selected paths; keys absent
// from a row are omitted, not nulled. Display names default to the trailing
// path segment, with explicit overrides preserved verbatim.
func Flatten(payload jsonutil.Value, selectedFields []string, displayNames map[string]string) *FetchResult {
	res := &FetchResult{
		Data:        []Row{},
		Fields:      []string{},
		LastUpdated: Timestamp(),
	}

	switch payload.Kind {
	case jsonutil.Array:
		seen := make(map[string]bool)
		for _, elem := range payload.Elems {
			res.Data = append(res.Data, flattenElement(elem, &res.Fields, seen))
		}
	case jsonutil.Object:
		res.Fields = []string{"name", "value"}
		for _, m := range payload.Members {
			res.Data = append(res.Data, Row{"name": m.Key, "value": m.Value.Unwrap()})
		}
	}

	if len(selectedFields) > 0 {
		res.Fields = filterFields(res.Fields, selectedFields)
		for i, row := range res.Data {
			res.Data[i] = filterRow(row, selectedFields)
		}
	}

	res.FieldDisplayNames = make(map[string]string, len(res.Fields))
	for _, f := range res.Fields {
		if name, ok := displayNames[f]; ok {
			res.FieldDisplayNames[f] = name
		} else {
			res.FieldDisplayNames[f] = DefaultDisplayName(f)
		}
	}

	return res
}

// flattenElement produces one row from an array element. Fields accumulate in
// first-discovery order across the whole payload; later rows may introduce
// paths earlier rows lacked.
func flattenElement(elem jsonutil.Value, fields *[]string, seen map[string]bool) Row {
	row := Row{}
	if elem.Kind != jsonutil.Object {
		return row
	}

	for _, m := range elem.Members {
		if m.Value.Kind == jsonutil.Object {
			for _, nested := range m.Value.Members {
				setCell(row, m.Key+"."+nested.Key, nested.Value, fields, seen)
			}
			continue
		}
		setCell(row, m.Key, m.Value, fields, seen)
	}
	return row
}

func setCell(row Row, path string, v jsonutil.Value, fields *[]string, seen map[string]bool) {
	row[path] = v.Unwrap()
	if !seen[path] {
		seen[path] = true
		*fields = append(*fields, path)
	}
}

func filterFields(fields, selected []string) []string {
	allowed := make(map[string]bool, len(selected))
	for _, f := range selected {
		allowed[f] = true
	}

	out := make([]string, 0, len(selected))
	for _, f := range fields {
		if allowed[f] {
			out = append(out, f)
		}
	}
	return out
}

func filterRow(row Row, selected []string) Row {
	out := make(Row, len(selected))
	for _, f := range selected {
		if v, ok := row[f]; ok {
			out[f] = v
		}
	}
	return out
}

// DefaultDisplayName derives a display name from a field path: the segment
// after the last dot ("a.b.c" -> "c").
func DefaultDisplayName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
