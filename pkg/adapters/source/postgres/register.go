package postgres

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "database",
			DisplayName: "Database Query",
			Description: "Run a read-only SQL query against PostgreSQL 12+",
			Icon:        "database",
		},
		New: New,
	})
}
