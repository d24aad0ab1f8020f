package models

import (
	"time"

	"github.com/google/uuid"
)

// Role values. Admins manage users, settings and data sources; standard
// users build dashboards.
const (
	RoleAdmin    = "admin"
	RoleStandard = "standard"
)

// AuthType values. LDAP users carry no local password hash.
const (
	AuthLocal = "local"
	AuthLDAP  = "ldap"
)

// User is an account that can sign in and own dashboards.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	AuthType     string    `json:"auth_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStandard
}
