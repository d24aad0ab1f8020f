package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/crypto"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
	"github.com/dashly-io/dashly-engine/pkg/models"
)

// Test encryption key (32 bytes, base64 encoded).
const testEncryptionKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

// mockDataSourceRepository is a configurable mock for testing.
type mockDataSourceRepository struct {
	ds              *models.DataSource
	encryptedConfig string
	getErr          error
	touchErr        error

	touchedID    uuid.UUID
	capturedDS   *models.DataSource
	capturedBlob string
}

func (m *mockDataSourceRepository) Create(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	m.capturedDS = ds
	m.capturedBlob = encryptedConfig
	ds.ID = uuid.New()
	return nil
}

func (m *mockDataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, string, error) {
	if m.getErr != nil {
		return nil, "", m.getErr
	}
	return m.ds, m.encryptedConfig, nil
}

func (m *mockDataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	return []*models.DataSource{m.ds}, nil
}

func (m *mockDataSourceRepository) Update(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	m.capturedDS = ds
	m.capturedBlob = encryptedConfig
	return nil
}

func (m *mockDataSourceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func (m *mockDataSourceRepository) TouchLastPull(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.touchedID = id
	return m.touchErr
}

func (m *mockDataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// mockFactory returns a fixed adapter for every type.
type mockFactory struct {
	adapter source.Adapter
	err     error
}

func (f *mockFactory) NewAdapter(sourceType string) (source.Adapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.adapter, nil
}

func (f *mockFactory) ListTypes() []source.AdapterInfo {
	return []source.AdapterInfo{{Type: "api"}}
}

// mockAdapter records the config it receives.
type mockAdapter struct {
	fetchResult *ingest.FetchResult
	testResult  *source.TestResult
	testErr     error
	gotConfig   json.RawMessage
}

func (a *mockAdapter) Test(ctx context.Context, raw json.RawMessage) (*source.TestResult, error) {
	a.gotConfig = raw
	return a.testResult, a.testErr
}

func (a *mockAdapter) Fetch(ctx context.Context, raw json.RawMessage) *ingest.FetchResult {
	a.gotConfig = raw
	return a.fetchResult
}

func newTestService(t *testing.T, repo *mockDataSourceRepository, factory source.AdapterFactory) *DataSourceService {
	t.Helper()
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	return NewDataSourceService(repo, factory, enc, zaptest.NewLogger(t))
}

func TestCreateEncryptsConfig(t *testing.T) {
	repo := &mockDataSourceRepository{}
	adapter := &mockAdapter{}
	svc := newTestService(t, repo, &mockFactory{adapter: adapter})

	config := json.RawMessage(`{"curlRequest":"curl https://x","secret":"p"}`)
	ds, err := svc.Create(context.Background(), "My API", "api", config)
	require.NoError(t, err)

	assert.Equal(t, "My API", ds.Name)
	assert.True(t, ds.IsActive)
	// The stored blob is ciphertext, not the raw config.
	assert.NotEmpty(t, repo.capturedBlob)
	assert.NotContains(t, repo.capturedBlob, "curlRequest")
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(t, &mockDataSourceRepository{}, &mockFactory{err: errors.New("unsupported data source type: nope")})

	_, err := svc.Create(context.Background(), "x", "nope", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestGetDecryptsConfig(t *testing.T) {
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	blob, err := enc.Encrypt(`{"k":"v"}`)
	require.NoError(t, err)

	id := uuid.New()
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: id, Type: "api"},
		encryptedConfig: blob,
	}
	svc := newTestService(t, repo, &mockFactory{adapter: &mockAdapter{}})

	ds, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(ds.Config))
}

func TestFetchDataTouchesLastPullBeforeFetch(t *testing.T) {
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	blob, err := enc.Encrypt(`{"curlRequest":"curl https://x"}`)
	require.NoError(t, err)

	id := uuid.New()
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: id, Type: "api"},
		encryptedConfig: blob,
	}
	adapter := &mockAdapter{fetchResult: &ingest.FetchResult{
		Data:   []ingest.Row{{"a": 1}},
		Fields: []string{"a"},
	}}
	svc := newTestService(t, repo, &mockFactory{adapter: adapter})

	result := svc.FetchData(context.Background(), id)

	assert.Empty(t, result.Error)
	assert.Equal(t, id, repo.touchedID) // attempt stamped even before outcome known
	assert.JSONEq(t, `{"curlRequest":"curl https://x"}`, string(adapter.gotConfig))
}

func TestFetchDataNeverReturnsError(t *testing.T) {
	repo := &mockDataSourceRepository{getErr: apperrors.ErrNotFound}
	svc := newTestService(t, repo, &mockFactory{adapter: &mockAdapter{}})

	result := svc.FetchData(context.Background(), uuid.New())

	assert.NotEmpty(t, result.Error)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)
}

func TestFetchDataBadCiphertextCaptured(t *testing.T) {
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: uuid.New(), Type: "api"},
		encryptedConfig: "corrupted-blob",
	}
	svc := newTestService(t, repo, &mockFactory{adapter: &mockAdapter{}})

	result := svc.FetchData(context.Background(), uuid.New())
	assert.Contains(t, result.Error, "decrypt")
}

func TestFetchDataStampsRefreshPolicy(t *testing.T) {
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	blob, err := enc.Encrypt(`{"curlRequest":"curl https://x","refreshInterval":30,"refreshUnit":"seconds"}`)
	require.NoError(t, err)

	id := uuid.New()
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: id, Type: "api", IsActive: true},
		encryptedConfig: blob,
	}
	adapter := &mockAdapter{fetchResult: &ingest.FetchResult{Data: []ingest.Row{}, Fields: []string{}}}
	svc := newTestService(t, repo, &mockFactory{adapter: adapter})

	result := svc.FetchData(context.Background(), id)
	assert.Equal(t, int64(30_000), result.RefreshMillis)
	assert.True(t, result.AutoRefresh)
}

func TestFetchDataRefreshPolicyBelowFloor(t *testing.T) {
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	blob, err := enc.Encrypt(`{"refreshInterval":5,"refreshUnit":"seconds"}`)
	require.NoError(t, err)

	id := uuid.New()
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: id, Type: "api", IsActive: true},
		encryptedConfig: blob,
	}
	adapter := &mockAdapter{fetchResult: &ingest.FetchResult{Data: []ingest.Row{}, Fields: []string{}}}
	svc := newTestService(t, repo, &mockFactory{adapter: adapter})

	result := svc.FetchData(context.Background(), id)
	assert.Equal(t, int64(5_000), result.RefreshMillis)
	assert.False(t, result.AutoRefresh) // below the 10s floor
}

func TestFetchDataInactiveSourceNeverAutoRefreshes(t *testing.T) {
	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	blob, err := enc.Encrypt(`{"refreshInterval":1,"refreshUnit":"minutes"}`)
	require.NoError(t, err)

	id := uuid.New()
	repo := &mockDataSourceRepository{
		ds:              &models.DataSource{ID: id, Type: "api", IsActive: false},
		encryptedConfig: blob,
	}
	adapter := &mockAdapter{fetchResult: &ingest.FetchResult{Data: []ingest.Row{}, Fields: []string{}}}
	svc := newTestService(t, repo, &mockFactory{adapter: adapter})

	result := svc.FetchData(context.Background(), id)
	assert.Equal(t, int64(60_000), result.RefreshMillis)
	assert.False(t, result.AutoRefresh)
}

func TestTestPropagatesAdapterError(t *testing.T) {
	adapter := &mockAdapter{testErr: errors.New("authentication failed: no token returned")}
	svc := newTestService(t, &mockDataSourceRepository{}, &mockFactory{adapter: adapter})

	_, err := svc.Test(context.Background(), "smax", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}
