package ingest

import "github.com/dashly-io/dashly-engine/pkg/jsonutil"

// DiscoverFields enumerates addressable dot-notation field paths in a JSON
// payload. Traversal is depth-first in source key order; a nested object
// contributes both its own path and its descendants' paths. Arrays are
// sampled from their first element only, so an empty array contributes
// nothing. Scalars and null terminate recursion without adding a path.
func DiscoverFields(v jsonutil.Value) []string {
	fields := []string{}
	discoverInto(v, "", &fields)
	return fields
}

func discoverInto(v jsonutil.Value, prefix string, fields *[]string) {
	switch v.Kind {
	case jsonutil.Object:
		for _, m := range v.Members {
			path := m.Key
			if prefix != "" {
				path = prefix + "." + m.Key
			}
			*fields = append(*fields, path)

			switch m.Value.Kind {
			case jsonutil.Object:
				discoverInto(m.Value, path, fields)
			case jsonutil.Array:
				if len(m.Value.Elems) > 0 {
					discoverInto(m.Value.Elems[0], path, fields)
				}
			}
		}
	case jsonutil.Array:
		if len(v.Elems) > 0 {
			discoverInto(v.Elems[0], prefix, fields)
		}
	}
}

// StructureOf mirrors the discovery traversal and returns a type-shape tree
// for the configuration UI: objects map keys to nested shapes, arrays carry a
// one-element sample of their first element's shape, and scalars collapse to
// a type tag. Null carries the "object" tag, matching the runtime tag JSON
// payloads produced in the dashboards this replaces. Never persisted.
func StructureOf(v jsonutil.Value) jsonutil.Value {
	switch v.Kind {
	case jsonutil.Object:
		out := jsonutil.Value{Kind: jsonutil.Object}
		for _, m := range v.Members {
			out.Members = append(out.Members, jsonutil.Member{Key: m.Key, Value: StructureOf(m.Value)})
		}
		return out
	case jsonutil.Array:
		out := jsonutil.Value{Kind: jsonutil.Array}
		if len(v.Elems) > 0 {
			out.Elems = []jsonutil.Value{StructureOf(v.Elems[0])}
		}
		return out
	case jsonutil.String:
		return typeTag("string")
	case jsonutil.Number:
		return typeTag("number")
	case jsonutil.Bool:
		return typeTag("boolean")
	default:
		return typeTag("object")
	}
}

func typeTag(tag string) jsonutil.Value {
	return jsonutil.Value{Kind: jsonutil.String, Str: tag}
}
