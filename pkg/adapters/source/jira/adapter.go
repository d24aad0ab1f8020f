// Package jira implements the JIRA source adapter. It authenticates with
// HTTP Basic auth, validates credentials against the project list and the
// caller's own profile, and maps issues from a JQL search into flat rows.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

const (
	maxBodyBytes     = 10 << 20
	filterSearchSize = 20
)

// Config is the jira source variant of the data source config union.
type Config struct {
	JiraURL             string            `json:"jiraUrl"`
	JiraUsername        string            `json:"jiraUsername"`
	JiraPassword        string            `json:"jiraPassword"`
	SelectedJiraProject string            `json:"selectedJiraProject"`
	JiraQuery           string            `json:"jiraQuery"`
	SelectedFields      []string          `json:"selectedFields"`
	FieldDisplayNames   map[string]string `json:"fieldDisplayNames"`
	RefreshInterval     int               `json:"refreshInterval"`
	RefreshUnit         string            `json:"refreshUnit"`
}

func decodeConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &source.ValidationError{Field: "config", Reason: err.Error()}
	}
	switch {
	case strings.TrimSpace(cfg.JiraURL) == "":
		return nil, &source.ValidationError{Field: "jiraUrl", Reason: "required"}
	case cfg.JiraUsername == "":
		return nil, &source.ValidationError{Field: "jiraUsername", Reason: "required"}
	case cfg.JiraPassword == "":
		return nil, &source.ValidationError{Field: "jiraPassword", Reason: "required"}
	}
	cfg.JiraURL = strings.TrimRight(strings.TrimSpace(cfg.JiraURL), "/")
	return &cfg, nil
}

// Adapter talks to a JIRA instance over its REST v2 API.
type Adapter struct {
	client *http.Client
	logger *zap.Logger
}

// New creates the jira adapter.
func New(deps source.Deps) source.Adapter {
	return &Adapter{client: deps.Client, logger: deps.Logger}
}

// Test validates credentials by fetching the project list and the caller's
// own profile. A non-array project list or a profile without an accountId is
// an authentication failure even on HTTP 200: JIRA answers some rejected
// logins with a misleading success status. Saved filters are fetched
// best-effort and never fail the test.
func (a *Adapter) Test(ctx context.Context, rawConfig json.RawMessage) (*source.TestResult, error) {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	var projects []jiraProject
	if err := a.getJSON(ctx, cfg, "/rest/api/2/project", nil, &projects); err != nil {
		if isDecodeError(err) {
			return nil, &source.AuthenticationError{Reason: "project list was not an array"}
		}
		return nil, err
	}

	var profile map[string]any
	if err := a.getJSON(ctx, cfg, "/rest/api/2/myself", nil, &profile); err != nil {
		return nil, err
	}
	if accountID, _ := profile["accountId"].(string); accountID == "" {
		return nil, &source.AuthenticationError{Reason: "profile response carried no accountId"}
	}

	result := &source.TestResult{
		Success: true,
		Fields:  append([]string(nil), issueFieldOrder...),
		User:    profile,
	}
	for _, p := range projects {
		result.Projects = append(result.Projects, source.ProjectOption{ID: p.ID, Key: p.Key, Name: p.Name})
	}
	result.SavedFilters = a.fetchSavedFilters(ctx, cfg)

	return result, nil
}

// fetchSavedFilters merges favourite filters with up to 20 searchable ones,
// favourites winning on id collisions. Failures are logged and swallowed.
func (a *Adapter) fetchSavedFilters(ctx context.Context, cfg *Config) []source.FilterOption {
	var favourites []jiraFilter
	if err := a.getJSON(ctx, cfg, "/rest/api/2/filter/favourite", nil, &favourites); err != nil {
		a.logger.Warn("jira favourite filter fetch failed", zap.Error(err))
		favourites = nil
	}

	var search struct {
		Values []jiraFilter `json:"values"`
	}
	query := url.Values{"maxResults": {strconv.Itoa(filterSearchSize)}}
	if err := a.getJSON(ctx, cfg, "/rest/api/2/filter/search", query, &search); err != nil {
		a.logger.Warn("jira filter search failed", zap.Error(err))
	}

	seen := make(map[string]bool, len(favourites))
	var out []source.FilterOption
	for _, f := range favourites {
		seen[f.ID] = true
		out = append(out, source.FilterOption{ID: f.ID, Name: f.Name, Favourite: true})
	}
	for _, f := range search.Values {
		if seen[f.ID] {
			continue
		}
		out = append(out, source.FilterOption{ID: f.ID, Name: f.Name})
	}
	return out
}

// Fetch runs the configured JQL search, capped at 100 issues, and maps each
// issue into the fixed field layout. Failures never propagate.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return ingest.Failed(err)
	}

	query := url.Values{
		"jql":        {buildJQL(cfg)},
		"maxResults": {strconv.Itoa(source.MaxFetchRows)},
	}
	var search struct {
		Issues []jiraIssue `json:"issues"`
	}
	if err := a.getJSON(ctx, cfg, "/rest/api/2/search", query, &search); err != nil {
		return ingest.Failed(err)
	}

	rows := make([]ingest.Row, len(search.Issues))
	for i, issue := range search.Issues {
		rows[i] = mapIssue(issue)
	}

	fields := append([]string(nil), issueFieldOrder...)
	rows, fields = source.FilterSelected(rows, fields, cfg.SelectedFields)

	return &ingest.FetchResult{
		Data:              rows,
		Fields:            fields,
		FieldDisplayNames: source.MergeDisplayNames(fields, defaultDisplayNames, cfg.FieldDisplayNames),
		LastUpdated:       ingest.Timestamp(),
	}
}

// buildJQL combines the selected project and any extra query fragment. With
// neither configured, recently created issues come back first.
func buildJQL(cfg *Config) string {
	extra := strings.TrimSpace(cfg.JiraQuery)
	switch {
	case cfg.SelectedJiraProject != "":
		jql := fmt.Sprintf("project = %q", cfg.SelectedJiraProject)
		if extra != "" {
			jql += " AND (" + extra + ")"
		}
		return jql
	case extra != "":
		return extra
	default:
		return "ORDER BY created DESC"
	}
}

type jiraProject struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type jiraFilter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jiraIssue struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// decodeError marks a response that came back 200 but did not match the
// expected shape, so Test can treat it as an authentication problem.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "unexpected response shape: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	_, ok := err.(*decodeError)
	return ok
}

func (a *Adapter) getJSON(ctx context.Context, cfg *Config, path string, query url.Values, out any) error {
	endpoint := cfg.JiraURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &source.ValidationError{Field: "jiraUrl", Reason: err.Error()}
	}
	req.SetBasicAuth(cfg.JiraUsername, cfg.JiraPassword)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return &source.NetworkError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &source.NetworkError{Op: "read response body", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &source.AuthenticationError{Reason: fmt.Sprintf("JIRA returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &source.NetworkError{Op: "GET " + path, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}
