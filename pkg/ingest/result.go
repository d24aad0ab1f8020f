// Package ingest implements the data source ingestion pipeline: cURL command
// translation, JSON field discovery, row flattening and the refresh policy.
package ingest

import "time"

// Row is one flattened record keyed by dot-delimited field path.
type Row map[string]any

// FetchResult is the normalized fetch response consumed by dashboard cards.
// On failure Data and Fields are empty (never nil) and Error carries the
// message; a card renders its "no data" state from that shape.
type FetchResult struct {
	Data              []Row             `json:"data"`
	Fields            []string          `json:"fields"`
	FieldDisplayNames map[string]string `json:"fieldDisplayNames,omitempty"`
	LastUpdated       string            `json:"lastUpdated"`
	Error             string            `json:"error,omitempty"`

	// RefreshMillis and AutoRefresh carry the source's computed poll policy
	// so the rendering side does not re-derive it. Stamped by the service,
	// not by adapters.
	RefreshMillis int64 `json:"refreshMillis,omitempty"`
	AutoRefresh   bool  `json:"autoRefresh"`
}

// Timestamp returns the RFC 3339 UTC timestamp stamped on fetch results.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Failed returns the normalized failure shape for a fetch error.
func Failed(err error) *FetchResult {
	return &FetchResult{
		Data:        []Row{},
		Fields:      []string{},
		LastUpdated: Timestamp(),
		Error:       err.Error(),
	}
}
