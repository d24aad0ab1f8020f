package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DataSource is a configured connection to an external backend. Config is a
// type-keyed variant (api, jira, smax, scraping, database) decoded by the
// matching adapter; it is encrypted at rest because it can carry backend
// credentials.
type DataSource struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config"`
	IsActive   bool            `json:"is_active"`
	LastPullAt *time.Time      `json:"last_pull_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
