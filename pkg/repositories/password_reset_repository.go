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

// PasswordResetRepository stores single-use password reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	// DeleteExpired prunes tokens past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// passwordResetRepository implements PasswordResetRepository using
// PostgreSQL.
type passwordResetRepository struct {
	db *database.DB
}

// NewPasswordResetRepository creates a new password reset repository.
func NewPasswordResetRepository(db *database.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

// Create inserts a new reset token.
func (r *passwordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

// GetByToken retrieves a reset token by its value.
func (r *passwordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token = $1`

	var t models.PasswordResetToken
	err := r.db.Pool.QueryRow(ctx, query, token).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return &t, nil
}

// MarkUsed stamps a token as redeemed so it cannot be replayed.
func (r *passwordResetRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrInvalidToken
	}

	return nil
}

// DeleteExpired prunes tokens past their expiry.
func (r *passwordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// Ensure passwordResetRepository implements PasswordResetRepository at
// compile time.
var _ PasswordResetRepository = (*passwordResetRepository)(nil)
