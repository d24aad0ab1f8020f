// Package smax implements the OpenText SMAX source adapter. Authentication
// exchanges credentials for a bearer token on every request chain; entity
// records come from the EMS REST endpoint.
package smax

import (
	"bytes"
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

const maxBodyBytes = 10 << 20

// authTokenCookie carries the bearer token on EMS requests.
const authTokenCookie = "SMAX_AUTH_TOKEN"

// Config is the smax source variant of the data source config union.
type Config struct {
	SmaxURL           string            `json:"smaxUrl"`
	SmaxUsername      string            `json:"smaxUsername"`
	SmaxPassword      string            `json:"smaxPassword"`
	TenantID          string            `json:"tenantId"`
	SelectedService   string            `json:"selectedService"`
	SmaxQuery         string            `json:"smaxQuery"`
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
	switch {
	case strings.TrimSpace(cfg.SmaxURL) == "":
		return nil, &source.ValidationError{Field: "smaxUrl", Reason: "required"}
	case cfg.SmaxUsername == "":
		return nil, &source.ValidationError{Field: "smaxUsername", Reason: "required"}
	case cfg.SmaxPassword == "":
		return nil, &source.ValidationError{Field: "smaxPassword", Reason: "required"}
	case strings.TrimSpace(cfg.TenantID) == "":
		return nil, &source.ValidationError{Field: "tenantId", Reason: "required"}
	}
	cfg.SmaxURL = strings.TrimRight(strings.TrimSpace(cfg.SmaxURL), "/")
	if cfg.SelectedService == "" {
		cfg.SelectedService = "Request"
	}
	return &cfg, nil
}

// Adapter talks to an OpenText SMAX tenant.
type Adapter struct {
	client *http.Client
	logger *zap.Logger
}

// New creates the smax adapter.
func New(deps source.Deps) source.Adapter {
	return &Adapter{client: deps.Client, logger: deps.Logger}
}

// Test authenticates, probes entity access with a one-record query and then
// surfaces the fixed entity types as selectable services. The current user's
// profile is fetched best-effort and never fails the test.
func (a *Adapter) Test(ctx context.Context, rawConfig json.RawMessage) (*source.TestResult, error) {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	token, err := a.authenticate(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := a.queryEntities(ctx, cfg, token, "Request", "Id", "", 1); err != nil {
		return nil, err
	}

	result := &source.TestResult{
		Success:  true,
		Fields:   append([]string(nil), entityProperties...),
		Services: entityTypes(),
	}
	if profile := a.fetchProfile(ctx, cfg, token); profile != nil {
		result.User = profile
	}
	return result, nil
}

// Fetch queries the selected entity type with the optional free-text filter,
// capped at 100 records, and maps each entity's properties into the fixed
// layout. Failures never propagate.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return ingest.Failed(err)
	}

	token, err := a.authenticate(ctx, cfg)
	if err != nil {
		return ingest.Failed(err)
	}

	entities, err := a.queryEntities(ctx, cfg, token, cfg.SelectedService,
		strings.Join(entityProperties, ","), strings.TrimSpace(cfg.SmaxQuery), source.MaxFetchRows)
	if err != nil {
		return ingest.Failed(err)
	}

	rows := make([]ingest.Row, len(entities))
	for i, ent := range entities {
		rows[i] = mapEntity(ent)
	}

	fields := append([]string(nil), entityProperties...)
	rows, fields = source.FilterSelected(rows, fields, cfg.SelectedFields)

	return &ingest.FetchResult{
		Data:              rows,
		Fields:            fields,
		FieldDisplayNames: source.MergeDisplayNames(fields, defaultDisplayNames, cfg.FieldDisplayNames),
		LastUpdated:       ingest.Timestamp(),
	}
}

// authenticate exchanges credentials for a bearer token. There is no session
// beyond the current request chain. A 200 response with an empty body is
// still an authentication failure: no token means no usable identity.
func (a *Adapter) authenticate(ctx context.Context, cfg *Config) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/authentication-endpoint/authenticate/login?TENANTID=%s",
		cfg.SmaxURL, url.QueryEscape(cfg.TenantID))

	payload, err := json.Marshal(map[string]string{
		"login":    cfg.SmaxUsername,
		"password": cfg.SmaxPassword,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &source.ValidationError{Field: "smaxUrl", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &source.NetworkError{Op: "POST authentication", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &source.NetworkError{Op: "read authentication response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &source.AuthenticationError{Reason: fmt.Sprintf("SMAX returned status %d", resp.StatusCode)}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", &source.AuthenticationError{Reason: "no token returned"}
	}
	return token, nil
}

type smaxEntity struct {
	EntityType string         `json:"entity_type"`
	Properties map[string]any `json:"properties"`
}

func (a *Adapter) queryEntities(ctx context.Context, cfg *Config, token, entityType, layout, filter string, size int) ([]smaxEntity, error) {
	query := url.Values{
		"layout": {layout},
		"size":   {strconv.Itoa(size)},
	}
	if filter != "" {
		query.Set("filter", filter)
	}
	endpoint := fmt.Sprintf("%s/rest/%s/ems/%s?%s",
		cfg.SmaxURL, url.PathEscape(cfg.TenantID), url.PathEscape(entityType), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &source.ValidationError{Field: "smaxUrl", Reason: err.Error()}
	}
	req.AddCookie(&http.Cookie{Name: authTokenCookie, Value: token})
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &source.NetworkError{Op: "GET " + entityType, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &source.NetworkError{Op: "read entity response", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &source.AuthenticationError{Reason: fmt.Sprintf("SMAX returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &source.NetworkError{Op: "GET " + entityType, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var decoded struct {
		Entities []smaxEntity `json:"entities"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode entity response: %w", err)
	}
	return decoded.Entities, nil
}

// fetchProfile resolves the authenticated person record. Best-effort only.
func (a *Adapter) fetchProfile(ctx context.Context, cfg *Config, token string) map[string]any {
	filter := fmt.Sprintf("Upn='%s'", strings.ReplaceAll(cfg.SmaxUsername, "'", ""))
	entities, err := a.queryEntities(ctx, cfg, token, "Person", "Id,Name,Upn,Email", filter, 1)
	if err != nil || len(entities) == 0 {
		if err != nil {
			a.logger.Warn("smax profile fetch failed", zap.Error(err))
		}
		return nil
	}
	return entities[0].Properties
}
