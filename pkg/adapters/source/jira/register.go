package jira

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "jira",
			DisplayName: "JIRA",
			Description: "Fetch issues from a JIRA instance via JQL",
			Icon:        "jira",
		},
		New: New,
	})
}
