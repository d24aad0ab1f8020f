package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/database"
	"github.com/dashly-io/dashly-engine/pkg/models"
)

// DataSourceRepository defines the interface for data source persistence.
// Configs arrive and leave encrypted; the service layer owns the key.
type DataSourceRepository interface {
	Create(ctx context.Context, ds *models.DataSource, encryptedConfig string) error
	// GetByID returns the data source and its encrypted config blob.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, string, error)
	List(ctx context.Context) ([]*models.DataSource, error)
	Update(ctx context.Context, ds *models.DataSource, encryptedConfig string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// TouchLastPull stamps the moment a fetch was attempted.
	TouchLastPull(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// dataSourceRepository implements DataSourceRepository using PostgreSQL.
type dataSourceRepository struct {
	db *database.DB
}

// NewDataSourceRepository creates a new data source repository.
func NewDataSourceRepository(db *database.DB) DataSourceRepository {
	return &dataSourceRepository{db: db}
}

// Create inserts a new data source. The config column stores the encrypted
// blob, never raw credentials.
func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	query := `
		INSERT INTO data_sources (id, name, type, config, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Pool.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Type,
		encryptedConfig,
		ds.IsActive,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}

	return nil
}

// GetByID retrieves a data source and its encrypted config.
func (r *dataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, string, error) {
	query := `
		SELECT id, name, type, config, is_active, last_pull_at, created_at, updated_at
		FROM data_sources
		WHERE id = $1`

	var ds models.DataSource
	var encryptedConfig string
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&ds.ID,
		&ds.Name,
		&ds.Type,
		&encryptedConfig,
		&ds.IsActive,
		&ds.LastPullAt,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get data source: %w", err)
	}

	return &ds, encryptedConfig, nil
}

// List retrieves all data sources without their configs.
func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	query := `
		SELECT id, name, type, is_active, last_pull_at, created_at, updated_at
		FROM data_sources
		ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.DataSource
	for rows.Next() {
		var ds models.DataSource
		err := rows.Scan(
			&ds.ID,
			&ds.Name,
			&ds.Type,
			&ds.IsActive,
			&ds.LastPullAt,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, &ds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data sources: %w", err)
	}

	return sources, nil
}

// Update updates a data source's name and encrypted config.
func (r *dataSourceRepository) Update(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	ds.UpdatedAt = time.Now()

	query := `
		UPDATE data_sources
		SET name = $1, config = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, ds.Name, encryptedConfig, ds.UpdatedAt, ds.ID)
	if err != nil {
		return fmt.Errorf("failed to update data source: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetActive toggles whether the source participates in auto refresh.
func (r *dataSourceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE data_sources SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set data source active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// TouchLastPull stamps the moment a fetch was attempted. It runs before the
// fetch, so the stamp records the attempt rather than the outcome.
func (r *dataSourceRepository) TouchLastPull(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE data_sources SET last_pull_at = $1 WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch last pull: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a data source. Cards that referenced it keep their row with
// a null data source reference.
func (r *dataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure dataSourceRepository implements DataSourceRepository at compile time.
var _ DataSourceRepository = (*dataSourceRepository)(nil)
