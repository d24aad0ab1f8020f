package scraping

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "scraping",
			DisplayName: "Web Scraping",
			Description: "Extract an HTML table from a public web page",
			Icon:        "scraping",
		},
		New: New,
	})
}
