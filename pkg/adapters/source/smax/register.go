package smax

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "smax",
			DisplayName: "OpenText SMAX",
			Description: "Fetch service management records from an OpenText SMAX tenant",
			Icon:        "smax",
		},
		New: New,
	})
}
