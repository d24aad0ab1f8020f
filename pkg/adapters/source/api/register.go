package api

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "api",
			DisplayName: "REST API (cURL)",
			Description: "Fetch JSON from any REST endpoint via a captured cURL command",
			Icon:        "api",
		},
		New: New,
	})
}
