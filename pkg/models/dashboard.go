package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GridUnit is the canvas snap size for card position and dimensions.
const GridUnit = 20

// Visualization types a card can render.
const (
	VisualizationTable = "table"
	VisualizationChart = "chart"
	VisualizationGraph = "graph"
)

// ValidVisualization reports whether v is a known visualization type.
func ValidVisualization(v string) bool {
	return v == VisualizationTable || v == VisualizationChart || v == VisualizationGraph
}

// Dashboard is a named canvas of cards. Public dashboards are viewable
// without a session when the access policy allows it.
type Dashboard struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	IsPublic    bool      `json:"is_public"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DashboardCard renders one data source on a dashboard canvas. A card whose
// data source was deleted keeps its place and resolves to an error result
// rather than being cascaded away.
type DashboardCard struct {
	ID                uuid.UUID       `json:"id"`
	DashboardID       uuid.UUID       `json:"dashboard_id"`
	Title             string          `json:"title"`
	VisualizationType string          `json:"visualization_type"`
	DataSourceID      *uuid.UUID      `json:"data_source_id"`
	X                 int             `json:"x"`
	Y                 int             `json:"y"`
	Width             int             `json:"width"`
	Height            int             `json:"height"`
	Config            json.RawMessage `json:"config,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SnapToGrid rounds a coordinate to the nearest grid unit.
func SnapToGrid(v int) int {
	if v < 0 {
		return -SnapToGrid(-v)
	}
	return (v + GridUnit/2) / GridUnit * GridUnit
}

// SnapLayout normalizes a card's position and size: coordinates snap to the
// grid and dimensions stay at least one grid unit.
func (c *DashboardCard) SnapLayout() {
	c.X = SnapToGrid(c.X)
	c.Y = SnapToGrid(c.Y)
	c.Width = SnapToGrid(c.Width)
	c.Height = SnapToGrid(c.Height)
	if c.Width < GridUnit {
		c.Width = GridUnit
	}
	if c.Height < GridUnit {
		c.Height = GridUnit
	}
}
