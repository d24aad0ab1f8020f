package jsonutil

import (
	"encoding/json"
	"fmt"
)

// RenderCell converts a row cell to its display string. Null renders as an
// empty string, composite values as their JSON encoding, and scalars via
// their natural string conversion. This is the rendering policy dashboard
// cards rely on, so it lives next to the value type rather than in a handler.
func RenderCell(cell any) string {
	switch t := cell.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprintf("%t", t)
	case Value:
		switch t.Kind {
		case Null, Invalid:
			return ""
		case String:
			return t.Str
		case Number:
			return t.Num.String()
		case Bool:
			return fmt.Sprintf("%t", t.Bool)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return ""
			}
			return string(b)
		}
	default:
		b, err := json.Marshal(cell)
		if err != nil {
			return fmt.Sprintf("%v", cell)
		}
		return string(b)
	}
}
