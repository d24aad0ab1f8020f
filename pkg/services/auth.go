package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/directory"
	"github.com/dashly-io/dashly-engine/pkg/mail"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
)

// DirectoryClient is the slice of the directory package the auth service
// needs. Narrowed to an interface so tests can stub the LDAP server.
type DirectoryClient interface {
	Authenticate(ctx context.Context, cfg models.LdapSettings, username, password string) (*directory.User, error)
}

// AuthService verifies credentials and manages password resets. Local
// accounts check a bcrypt hash; when LDAP is enabled, unknown identifiers
// and LDAP-typed accounts fall through to the directory.
type AuthService struct {
	users     repositories.UserRepository
	resets    repositories.PasswordResetRepository
	settings  *SettingsService
	directory DirectoryClient
	mailer    mail.Mailer
	baseURL   string
	logger    *zap.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(
	users repositories.UserRepository,
	resets repositories.PasswordResetRepository,
	settings *SettingsService,
	directoryClient DirectoryClient,
	mailer mail.Mailer,
	baseURL string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		resets:    resets,
		settings:  settings,
		directory: directoryClient,
		mailer:    mailer,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Authenticate verifies an identifier and password. Every failure path
// returns ErrInvalidCredentials so a caller cannot probe which accounts
// exist.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	switch {
	case err == nil && user.AuthType == models.AuthLocal:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, apperrors.ErrInvalidCredentials
		}
		return user, nil

	case err == nil && user.AuthType == models.AuthLDAP:
		return s.authenticateLdap(ctx, user, identifier, password)

	case errors.Is(err, apperrors.ErrNotFound):
		return s.authenticateLdap(ctx, nil, identifier, password)

	default:
		return nil, err
	}
}

// authenticateLdap verifies the password against the directory. A nil user
// means the identifier is unknown locally; a successful bind then
// provisions an account when the access policy allows it.
func (s *AuthService) authenticateLdap(ctx context.Context, user *models.User, identifier, password string) (*models.User, error) {
	cfg, err := s.settings.Ldap(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.ErrInvalidCredentials
	}

	entry, err := s.directory.Authenticate(ctx, cfg, identifier, password)
	if err != nil {
		s.logger.Debug("Directory authentication failed", zap.String("identifier", identifier), zap.Error(err))
		return nil, apperrors.ErrInvalidCredentials
	}

	if user != nil {
		return user, nil
	}

	access, err := s.settings.Access(ctx)
	if err != nil {
		return nil, err
	}
	if !access.AllowLdapSignup {
		return nil, apperrors.ErrInvalidCredentials
	}

	user = &models.User{
		Username:    entry.Username,
		Email:       entry.Email,
		DisplayName: entry.DisplayName,
		Role:        access.Role(),
		AuthType:    models.AuthLDAP,
	}
	if user.Username == "" {
		user.Username = identifier
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Provisioned concurrently by another login.
			return s.users.GetByIdentifier(ctx, user.Username)
		}
		return nil, err
	}

	s.logger.Info("Provisioned directory user", zap.String("username", user.Username), zap.String("role", user.Role))
	return user, nil
}

// RequestPasswordReset issues a reset token and mails it. Unknown emails and
// directory accounts return nil so the endpoint does not leak which
// addresses have local accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.AuthType != models.AuthLocal {
		return nil
	}

	if pruned, err := s.resets.DeleteExpired(ctx, time.Now()); err != nil {
		s.logger.Warn("Failed to prune expired reset tokens", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Debug("Pruned expired reset tokens", zap.Int64("count", pruned))
	}

	token, err := generateToken()
	if err != nil {
		return err
	}

	reset := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(models.PasswordResetTokenTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}

	mailCfg, err := s.settings.Mail(ctx)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, mailCfg, user.Email, token, s.baseURL); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	return nil
}

// ResetPassword redeems a token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	reset, err := s.resets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidToken
		}
		return err
	}
	if !reset.Usable(time.Now()) {
		return apperrors.ErrInvalidToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.resets.MarkUsed(ctx, reset.ID, time.Now()); err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, reset.UserID, hash)
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
