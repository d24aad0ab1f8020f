package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
)

// UserService manages accounts for admins.
type UserService struct {
	users repositories.UserRepository
}

// NewUserService creates a user service.
func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// Create makes a local account with a hashed password.
func (s *UserService) Create(ctx context.Context, username, email, displayName, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("email is not a valid address")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("role must be admin or standard")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
		AuthType:     models.AuthLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// Update changes a user's profile and role.
func (s *UserService) Update(ctx context.Context, user *models.User) error {
	if !models.ValidRole(user.Role) {
		return fmt.Errorf("role must be admin or standard")
	}
	return s.users.Update(ctx, user)
}

// Delete removes a user. Deleting the last admin fails.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}
