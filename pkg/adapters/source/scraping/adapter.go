// Package scraping implements the web scraping source adapter: an HTML table
// on a public page is extracted into rows, with the header row supplying
// field names.
package scraping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// testSampleRows caps how many rows a dry run returns for preview.
const testSampleRows = 5

// Config is the scraping source variant of the data source config union.
type Config struct {
	URL               string            `json:"url"`
	Selector          string            `json:"selector"` // CSS selector for the table, default "table"
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
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, &source.ValidationError{Field: "url", Reason: "required"}
	}
	if strings.TrimSpace(cfg.Selector) == "" {
		cfg.Selector = "table"
	}
	return &cfg, nil
}

// Adapter scrapes HTML tables from web pages.
type Adapter struct {
	client *http.Client
	logger *zap.Logger
}

// New creates the scraping adapter.
func New(deps source.Deps) source.Adapter {
	return &Adapter{client: deps.Client, logger: deps.Logger}
}

// Test scrapes the configured table and returns the detected columns plus a
// short row sample for preview.
func (a *Adapter) Test(ctx context.Context, rawConfig json.RawMessage) (*source.TestResult, error) {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	rows, fields, err := a.scrapeTable(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sample := rows
	if len(sample) > testSampleRows {
		sample = sample[:testSampleRows]
	}

	return &source.TestResult{
		Success:  true,
		Fields:   fields,
		Response: sample,
	}, nil
}

// Fetch scrapes the table and applies the persisted field selection.
// Failures never propagate.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return ingest.Failed(err)
	}

	rows, fields, err := a.scrapeTable(ctx, cfg)
	if err != nil {
		return ingest.Failed(err)
	}

	rows, fields = source.FilterSelected(rows, fields, cfg.SelectedFields)

	return &ingest.FetchResult{
		Data:              rows,
		Fields:            fields,
		FieldDisplayNames: source.MergeDisplayNames(fields, nil, cfg.FieldDisplayNames),
		LastUpdated:       ingest.Timestamp(),
	}
}

// scrapeTable extracts the first table matching the selector. The first row
// supplies field names; blank headers fall back to positional names. Rows are
// capped like every other source.
func (a *Adapter) scrapeTable(ctx context.Context, cfg *Config) ([]ingest.Row, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, nil, &source.ValidationError{Field: "url", Reason: err.Error()}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, &source.NetworkError{Op: "GET " + cfg.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &source.NetworkError{Op: "GET " + cfg.URL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page: %w", err)
	}

	table := doc.Find(cfg.Selector).First()
	if table.Length() == 0 {
		return nil, nil, &source.ValidationError{Field: "selector", Reason: "no element matches " + cfg.Selector}
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, nil, &source.ValidationError{Field: "selector", Reason: "matched element has no rows"}
	}

	var fields []string
	trs.First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
		header := strings.TrimSpace(cell.Text())
		if header == "" {
			header = fmt.Sprintf("column%d", i+1)
		}
		fields = append(fields, header)
	})

	rows := []ingest.Row{}
	trs.Each(func(i int, tr *goquery.Selection) {
		if i == 0 || len(rows) >= source.MaxFetchRows {
			return
		}
		row := ingest.Row{}
		tr.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			if j < len(fields) {
				row[fields[j]] = strings.TrimSpace(cell.Text())
			}
		})
		rows = append(rows, row)
	})

	return rows, fields, nil
}
