package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/database"
	"github.com/dashly-io/dashly-engine/pkg/models"
)

// CardLayout is one card's position and size in a bulk layout update.
type CardLayout struct {
	ID     uuid.UUID `json:"id"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// DashboardRepository defines the interface for dashboard and card
// persistence.
type DashboardRepository interface {
	Create(ctx context.Context, d *models.Dashboard) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Dashboard, error)
	Update(ctx context.Context, d *models.Dashboard) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateCard(ctx context.Context, card *models.DashboardCard) error
	GetCard(ctx context.Context, id uuid.UUID) (*models.DashboardCard, error)
	ListCards(ctx context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error)
	UpdateCard(ctx context.Context, card *models.DashboardCard) error
	DeleteCard(ctx context.Context, id uuid.UUID) error
	// UpdateLayout applies position changes for many cards in one
	// transaction.
	UpdateLayout(ctx context.Context, dashboardID uuid.UUID, layouts []CardLayout) error
}

// dashboardRepository implements DashboardRepository using PostgreSQL.
type dashboardRepository struct {
	db *database.DB
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *database.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// Create inserts a new dashboard.
func (r *dashboardRepository) Create(ctx context.Context, d *models.Dashboard) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO dashboards (id, owner_id, name, description, is_public, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Pool.Exec(ctx, query,
		d.ID,
		d.OwnerID,
		d.Name,
		d.Description,
		d.IsPublic,
		d.LogoURL,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	return nil
}

// GetByID retrieves a dashboard by ID.
func (r *dashboardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error) {
	query := `
		SELECT id, owner_id, name, description, is_public, logo_url, created_at, updated_at
		FROM dashboards
		WHERE id = $1`

	var d models.Dashboard
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.OwnerID,
		&d.Name,
		&d.Description,
		&d.IsPublic,
		&d.LogoURL,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	return &d, nil
}

// ListByOwner retrieves all dashboards owned by a user.
func (r *dashboardRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Dashboard, error) {
	query := `
		SELECT id, owner_id, name, description, is_public, logo_url, created_at, updated_at
		FROM dashboards
		WHERE owner_id = $1
		ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []*models.Dashboard
	for rows.Next() {
		var d models.Dashboard
		err := rows.Scan(
			&d.ID,
			&d.OwnerID,
			&d.Name,
			&d.Description,
			&d.IsPublic,
			&d.LogoURL,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		dashboards = append(dashboards, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dashboards: %w", err)
	}

	return dashboards, nil
}

// Update updates a dashboard's metadata.
func (r *dashboardRepository) Update(ctx context.Context, d *models.Dashboard) error {
	d.UpdatedAt = time.Now()

	query := `
		UPDATE dashboards
		SET name = $1, description = $2, is_public = $3, logo_url = $4, updated_at = $5
		WHERE id = $6`

	result, err := r.db.Pool.Exec(ctx, query,
		d.Name,
		d.Description,
		d.IsPublic,
		d.LogoURL,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dashboard: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a dashboard. Its cards go with it via the cascade.
func (r *dashboardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// CreateCard inserts a new card.
func (r *dashboardRepository) CreateCard(ctx context.Context, card *models.DashboardCard) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now

	config := card.Config
	if config == nil {
		config = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO dashboard_cards (id, dashboard_id, data_source_id, title, visualization_type, x, y, width, height, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Pool.Exec(ctx, query,
		card.ID,
		card.DashboardID,
		card.DataSourceID,
		card.Title,
		card.VisualizationType,
		card.X,
		card.Y,
		card.Width,
		card.Height,
		config,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

const cardColumns = `id, dashboard_id, data_source_id, title, visualization_type, x, y, width, height, config, created_at, updated_at`

func scanCard(row pgx.Row) (*models.DashboardCard, error) {
	var card models.DashboardCard
	err := row.Scan(
		&card.ID,
		&card.DashboardID,
		&card.DataSourceID,
		&card.Title,
		&card.VisualizationType,
		&card.X,
		&card.Y,
		&card.Width,
		&card.Height,
		&card.Config,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCard retrieves a card by ID.
func (r *dashboardRepository) GetCard(ctx context.Context, id uuid.UUID) (*models.DashboardCard, error) {
	query := `SELECT ` + cardColumns + ` FROM dashboard_cards WHERE id = $1`

	card, err := scanCard(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// ListCards retrieves all cards on a dashboard.
func (r *dashboardRepository) ListCards(ctx context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error) {
	query := `SELECT ` + cardColumns + ` FROM dashboard_cards WHERE dashboard_id = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.DashboardCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// UpdateCard updates a card's content and placement.
func (r *dashboardRepository) UpdateCard(ctx context.Context, card *models.DashboardCard) error {
	card.UpdatedAt = time.Now()

	config := card.Config
	if config == nil {
		config = json.RawMessage(`{}`)
	}

	query := `
		UPDATE dashboard_cards
		SET data_source_id = $1, title = $2, visualization_type = $3, x = $4, y = $5, width = $6, height = $7, config = $8, updated_at = $9
		WHERE id = $10`

	result, err := r.db.Pool.Exec(ctx, query,
		card.DataSourceID,
		card.Title,
		card.VisualizationType,
		card.X,
		card.Y,
		card.Width,
		card.Height,
		config,
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeleteCard removes a card.
func (r *dashboardRepository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM dashboard_cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateLayout applies position changes for many cards in one transaction.
// Cards outside the dashboard are ignored rather than moved.
func (r *dashboardRepository) UpdateLayout(ctx context.Context, dashboardID uuid.UUID, layouts []CardLayout) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		UPDATE dashboard_cards
		SET x = $1, y = $2, width = $3, height = $4, updated_at = $5
		WHERE id = $6 AND dashboard_id = $7`

	now := time.Now()
	for _, layout := range layouts {
		_, err = tx.Exec(ctx, query,
			layout.X,
			layout.Y,
			layout.Width,
			layout.Height,
			now,
			layout.ID,
			dashboardID,
		)
		if err != nil {
			return fmt.Errorf("failed to update card layout: %w", err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ensure dashboardRepository implements DashboardRepository at compile time.
var _ DashboardRepository = (*dashboardRepository)(nil)
