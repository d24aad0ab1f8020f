// Package postgres implements the database source adapter: a read-only
// SELECT against a PostgreSQL server, wrapped with a hard row limit. The
// registered type is "database".
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// Config is the database source variant of the data source config union.
type Config struct {
	Host              string            `json:"host"`
	Port              int               `json:"port"`
	User              string            `json:"user"`
	Password          string            `json:"password"`
	Database          string            `json:"database"`
	SSLMode           string            `json:"sslMode"`
	Query             string            `json:"query"`
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
	case strings.TrimSpace(cfg.Host) == "":
		return nil, &source.ValidationError{Field: "host", Reason: "required"}
	case strings.TrimSpace(cfg.Database) == "":
		return nil, &source.ValidationError{Field: "database", Reason: "required"}
	}
	if err := validateQuery(cfg.Query); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}
	return &cfg, nil
}

// validateQuery rejects anything that is not a plain SELECT (or WITH) before
// a connection is even attempted. The limit wrap makes multi-statement input
// fail server-side too; this check just gives a clearer message.
func validateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &source.ValidationError{Field: "query", Reason: "required"}
	}
	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return &source.ValidationError{Field: "query", Reason: "only SELECT queries are allowed"}
	}
	return nil
}

// Adapter runs dashboard queries against PostgreSQL.
type Adapter struct {
	logger *zap.Logger
}

// New creates the database adapter. The shared HTTP client is unused here;
// connections go straight through pgx.
func New(deps source.Deps) source.Adapter {
	return &Adapter{logger: deps.Logger}
}

// Test connects and runs the query limited to one row, returning the result
// columns as selectable fields.
func (a *Adapter) Test(ctx context.Context, rawConfig json.RawMessage) (*source.TestResult, error) {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	rows, fields, err := a.run(ctx, cfg, 1)
	if err != nil {
		return nil, err
	}

	return &source.TestResult{
		Success:  true,
		Fields:   fields,
		Response: rows,
	}, nil
}

// Fetch runs the query capped at 100 rows and applies the persisted field
// selection. Failures never propagate.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage) *ingest.FetchResult {
	cfg, err := decodeConfig(rawConfig)
	if err != nil {
		return ingest.Failed(err)
	}

	rows, fields, err := a.run(ctx, cfg, source.MaxFetchRows)
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

func (a *Adapter) run(ctx context.Context, cfg *Config, limit int) ([]ingest.Row, []string, error) {
	conn, err := pgx.Connect(ctx, connectionString(cfg))
	if err != nil {
		return nil, nil, &source.NetworkError{Op: "connect to " + cfg.Host, Err: err}
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, wrapWithLimit(cfg.Query, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]string, len(descs))
	for i, fd := range descs {
		fields[i] = string(fd.Name)
	}

	result := []ingest.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(ingest.Row, len(fields))
		for i, name := range fields {
			row[name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, fields, nil
}

// wrapWithLimit bounds the query so a runaway SELECT cannot flood a card.
func wrapWithLimit(query string, limit int) string {
	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	return fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", trimmed, limit)
}

func connectionString(cfg *Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}
