// Package services holds the business logic between HTTP handlers and
// repositories.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/crypto"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
)

// DataSourceService manages data source lifecycle and drives fetches through
// the adapter registry.
type DataSourceService struct {
	repo      repositories.DataSourceRepository
	factory   source.AdapterFactory
	encryptor *crypto.Encryptor
	logger    *zap.Logger
}

// NewDataSourceService creates a data source service.
func NewDataSourceService(
	repo repositories.DataSourceRepository,
	factory source.AdapterFactory,
	encryptor *crypto.Encryptor,
	logger *zap.Logger,
) *DataSourceService {
	return &DataSourceService{
		repo:      repo,
		factory:   factory,
		encryptor: encryptor,
		logger:    logger,
	}
}

// ListTypes returns the adapter types compiled into this build.
func (s *DataSourceService) ListTypes() []source.AdapterInfo {
	return s.factory.ListTypes()
}

// Create validates the type against the registry, encrypts the config and
// persists the source.
func (s *DataSourceService) Create(ctx context.Context, name, sourceType string, config json.RawMessage) (*models.DataSource, error) {
	if _, err := s.factory.NewAdapter(sourceType); err != nil {
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(string(config))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt config: %w", err)
	}

	ds := &models.DataSource{
		Name:     name,
		Type:     sourceType,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, ds, encrypted); err != nil {
		return nil, err
	}

	ds.Config = config
	return ds, nil
}

// Get returns a data source with its decrypted config.
func (s *DataSourceService) Get(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	ds, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	config, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt config: %w", err)
	}

	ds.Config = json.RawMessage(config)
	return ds, nil
}

// List returns all data sources without configs.
func (s *DataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	return s.repo.List(ctx)
}

// Update replaces a source's name and config. The type is immutable; a
// different backend is a different source.
func (s *DataSourceService) Update(ctx context.Context, id uuid.UUID, name string, config json.RawMessage) (*models.DataSource, error) {
	ds, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(string(config))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt config: %w", err)
	}

	ds.Name = name
	if err := s.repo.Update(ctx, ds, encrypted); err != nil {
		return nil, err
	}

	ds.Config = config
	return ds, nil
}

// SetActive toggles a source's auto refresh participation.
func (s *DataSourceService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a data source.
func (s *DataSourceService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Test runs a connection probe against an unsaved config. Failures propagate
// so the caller can show the reason.
func (s *DataSourceService) Test(ctx context.Context, sourceType string, config json.RawMessage) (*source.TestResult, error) {
	adapter, err := s.factory.NewAdapter(sourceType)
	if err != nil {
		return nil, err
	}
	return adapter.Test(ctx, config)
}

// FetchData pulls rows for a stored source. It never returns an error to the
// caller: any failure is captured inside the result so a dashboard card
// renders the message instead of breaking the page. The last pull stamp
// records the attempt, successful or not.
func (s *DataSourceService) FetchData(ctx context.Context, id uuid.UUID) *ingest.FetchResult {
	ds, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ingest.Failed(err)
	}

	if err := s.repo.TouchLastPull(ctx, id, time.Now()); err != nil {
		s.logger.Warn("Failed to stamp last pull", zap.String("id", id.String()), zap.Error(err))
	}

	config, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return ingest.Failed(fmt.Errorf("failed to decrypt config: %w", err))
	}

	adapter, err := s.factory.NewAdapter(ds.Type)
	if err != nil {
		return ingest.Failed(err)
	}

	result := adapter.Fetch(ctx, json.RawMessage(config))
	stampRefreshPolicy(result, ds, json.RawMessage(config))
	return result
}

// stampRefreshPolicy computes the source's poll period from its config and
// carries it on the result. Inactive sources never auto refresh regardless of
// the configured interval.
func stampRefreshPolicy(result *ingest.FetchResult, ds *models.DataSource, config json.RawMessage) {
	var policy struct {
		RefreshInterval int    `json:"refreshInterval"`
		RefreshUnit     string `json:"refreshUnit"`
	}
	if err := json.Unmarshal(config, &policy); err != nil {
		return
	}
	result.RefreshMillis = ingest.ToMillis(policy.RefreshInterval, policy.RefreshUnit)
	result.AutoRefresh = ds.IsActive && ingest.AutoRefreshEnabled(result.RefreshMillis)
}
