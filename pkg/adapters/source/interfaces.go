// Package source defines the data source adapter contract and registry.
//
// An adapter knows how to authenticate against one kind of backend, fetch raw
// data and map it into the normalized flat-record shape dashboard cards
// consume. Adapter packages register themselves via init(); main imports them
// for side effects the way database drivers are wired in.
package source

import (
	"context"
	"encoding/json"

	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// MaxFetchRows caps the records a single fetch returns, across all adapters.
const MaxFetchRows = 100

// Adapter connects a data source type to its backend.
//
// Test and Fetch carry deliberately different error contracts. Test is the
// interactive dry run behind the configuration UI: every failure propagates
// so the user can fix the config before saving. Fetch runs on a schedule:
// every failure is captured into the result's Error field with empty
// Data/Fields so a card renders "no data" instead of crashing the dashboard.
// The two entry points exist precisely so that contract is visible in the
// types rather than hidden behind a "silent" flag.
type Adapter interface {
	// Test performs a dry-run fetch for configuration. No persistence side
	// effects. Errors propagate.
	Test(ctx context.Context, rawConfig json.RawMessage) (*TestResult, error)

	// Fetch retrieves and normalizes rows for a refresh. Never returns an
	// error; failures surface in the result.
	Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult
}

// TestResult is the configuration-time dry-run response. Which optional
// sections are populated depends on the source type.
type TestResult struct {
	Success      bool            `json:"success"`
	StatusCode   int             `json:"statusCode,omitempty"`
	Response     any             `json:"response,omitempty"`
	Fields       []string        `json:"fields"`
	Structure    any             `json:"structure,omitempty"`
	Projects     []ProjectOption `json:"projects,omitempty"`
	SavedFilters []FilterOption  `json:"savedFilters,omitempty"`
	Services     []ServiceOption `json:"services,omitempty"`
	User         map[string]any  `json:"user,omitempty"`
}

// ProjectOption is a selectable project surfaced during a JIRA test.
type ProjectOption struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// FilterOption is a selectable saved filter surfaced during a JIRA test.
type FilterOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Favourite bool   `json:"favourite"`
}

// ServiceOption is a selectable entity type surfaced during a SMAX test.
type ServiceOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
