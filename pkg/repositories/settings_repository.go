package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dashly-io/dashly-engine/pkg/database"
)

// SettingsRepository stores system settings as key-value rows.
type SettingsRepository interface {
	// Values returns every setting whose key starts with prefix.
	Values(ctx context.Context, prefix string) (map[string]string, error)
	// SetValues upserts a batch of settings in one transaction.
	SetValues(ctx context.Context, values map[string]string) error
}

// settingsRepository implements SettingsRepository using PostgreSQL.
type settingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *database.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Values returns every setting whose key starts with prefix.
func (r *settingsRepository) Values(ctx context.Context, prefix string) (map[string]string, error) {
	query := `SELECT key, value FROM settings WHERE key LIKE $1 || '%'`

	rows, err := r.db.Pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return values, nil
}

// SetValues upserts a batch of settings in one transaction.
func (r *settingsRepository) SetValues(ctx context.Context, values map[string]string) error {
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
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at`

	now := time.Now()
	for key, value := range values {
		_, err = tx.Exec(ctx, query, key, value, now)
		if err != nil {
			return fmt.Errorf("failed to set setting %s: %w", key, err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ensure settingsRepository implements SettingsRepository at compile time.
var _ SettingsRepository = (*settingsRepository)(nil)
