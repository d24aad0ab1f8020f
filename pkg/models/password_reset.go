package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetTokenTTL is how long a reset token stays valid.
const PasswordResetTokenTTL = time.Hour

// PasswordResetToken is a single-use token mailed to a local user.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token can still redeem a password change.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
