// Package api implements the generic REST API source adapter: a captured
// cURL command is translated into a GET request and the JSON response is
// flattened into rows.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
	"github.com/dashly-io/dashly-engine/pkg/jsonutil"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Config is the api source variant of the data source config union.
type Config struct {
	CurlRequest       string            `json:"curlRequest"`
	SelectedFields    []string          `json:"selectedFields"`
	FieldDisplayNames map[string]string `json:"fieldDisplayNames"`
	RefreshInterval   int               `json:"refreshInterval"`
	RefreshUnit       string            `json:"refreshUnit"`
}

func decodeConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &source.ValidationError{Field: "config", Reason: err.Error()}
	}
	if strings.TrimSpace(cfg.CurlRequest) == "" {
		return nil, &source.ValidationError{Field: "curlRequest", Reason: "required"}
	}
	return &cfg, nil
}

// Adapter fetches from arbitrary REST endpoints described by cURL commands.
type Adapter struct {
	client *http.Client
	logger *zap.Logger
}

// New creates the api adapter.
func New(deps source.Deps) source.Adapter {
	return &Adapter{client: deps.Client, logger: deps.Logger}
}

// Test translates the cURL command, performs one GET and reports the status
// code, the parsed body (or {raw: text} when it is not JSON), discovered
// fields and the structural summary.
func (a *Adapter) Test(ctx context.Context, rawConfig json.RawMessage) (*source.TestResult, error) {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	req, err := ingest.TranslateCurl(cfg.CurlRequest)
	if err != nil {
		return nil, err
	}

	status, body, err := a.get(ctx, req)
	if err != nil {
		return nil, err
	}

	parsed, err := jsonutil.Parse(body)
	if err != nil {
		return &source.TestResult{
			Success:    true,
			StatusCode: status,
			Response:   map[string]string{"raw": string(body)},
			Fields:     []string{},
		}, nil
	}

	return &source.TestResult{
		Success:    true,
		StatusCode: status,
		Response:   parsed,
		Fields:     ingest.DiscoverFields(parsed),
		Structure:  ingest.StructureOf(parsed),
	}, nil
}

// Fetch repeats translation and the GET, then flattens the parsed body with
// the persisted field selection. Failures never propagate.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return ingest.Failed(err)
	}

	req, err := ingest.TranslateCurl(cfg.CurlRequest)
	if err != nil {
		return ingest.Failed(err)
	}

	_, body, err := a.get(ctx, req)
	if err != nil {
		return ingest.Failed(err)
	}

	parsed, err := jsonutil.Parse(body)
	if err != nil {
		return ingest.Failed(fmt.Errorf("response is not valid JSON: %w", err))
	}

	return ingest.Flatten(parsed, cfg.SelectedFields, cfg.FieldDisplayNames)
}

func (a *Adapter) get(ctx context.Context, cr *ingest.CurlRequest) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cr.URL, nil)
	if err != nil {
		return 0, nil, &source.ValidationError{Field: "curlRequest", Reason: err.Error()}
	}
	for name, value := range cr.Headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return 0, nil, &source.NetworkError{Op: "GET " + cr.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &source.NetworkError{Op: "read response body", Err: err}
	}
	return resp.StatusCode, body, nil
}
