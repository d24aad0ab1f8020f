package services

import (
	"context"

	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
)

// SettingsService reads and writes typed system settings over the key-value
// store.
type SettingsService struct {
	repo repositories.SettingsRepository
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo repositories.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Ldap returns the directory settings.
func (s *SettingsService) Ldap(ctx context.Context) (models.LdapSettings, error) {
	values, err := s.repo.Values(ctx, "ldap.")
	if err != nil {
		return models.LdapSettings{}, err
	}
	return models.LdapSettingsFromValues(values), nil
}

// SetLdap validates and stores the directory settings.
func (s *SettingsService) SetLdap(ctx context.Context, cfg models.LdapSettings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.repo.SetValues(ctx, cfg.Values())
}

// Mail returns the SMTP relay settings.
func (s *SettingsService) Mail(ctx context.Context) (models.MailSettings, error) {
	values, err := s.repo.Values(ctx, "mail.")
	if err != nil {
		return models.MailSettings{}, err
	}
	return models.MailSettingsFromValues(values), nil
}

// SetMail validates and stores the SMTP relay settings.
func (s *SettingsService) SetMail(ctx context.Context, cfg models.MailSettings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.repo.SetValues(ctx, cfg.Values())
}

// Access returns the sign-in and publishing policy.
func (s *SettingsService) Access(ctx context.Context) (models.AccessSettings, error) {
	values, err := s.repo.Values(ctx, "access.")
	if err != nil {
		return models.AccessSettings{}, err
	}
	return models.AccessSettingsFromValues(values), nil
}

// SetAccess validates and stores the sign-in and publishing policy.
func (s *SettingsService) SetAccess(ctx context.Context, cfg models.AccessSettings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.repo.SetValues(ctx, cfg.Values())
}
