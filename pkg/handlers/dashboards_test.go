package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// fakeDashboardRepo serves one dashboard and one card.
type fakeDashboardRepo struct {
	dashboard *models.Dashboard
	card      *models.DashboardCard
}

func (f *fakeDashboardRepo) Create(ctx context.Context, d *models.Dashboard) error { return nil }

func (f *fakeDashboardRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error) {
	if f.dashboard == nil || f.dashboard.ID != id {
		return nil, apperrors.ErrNotFound
	}
	return f.dashboard, nil
}

func (f *fakeDashboardRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Dashboard, error) {
	return nil, nil
}

func (f *fakeDashboardRepo) Update(ctx context.Context, d *models.Dashboard) error { return nil }
func (f *fakeDashboardRepo) Delete(ctx context.Context, id uuid.UUID) error        { return nil }

func (f *fakeDashboardRepo) CreateCard(ctx context.Context, card *models.DashboardCard) error {
	return nil
}

func (f *fakeDashboardRepo) GetCard(ctx context.Context, id uuid.UUID) (*models.DashboardCard, error) {
	if f.card == nil || f.card.ID != id {
		return nil, apperrors.ErrNotFound
	}
	return f.card, nil
}

func (f *fakeDashboardRepo) ListCards(ctx context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error) {
	if f.card == nil {
		return nil, nil
	}
	return []*models.DashboardCard{f.card}, nil
}

func (f *fakeDashboardRepo) UpdateCard(ctx context.Context, card *models.DashboardCard) error {
	return nil
}

func (f *fakeDashboardRepo) DeleteCard(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeDashboardRepo) UpdateLayout(ctx context.Context, dashboardID uuid.UUID, layouts []repositories.CardLayout) error {
	return nil
}

// fakeSettingsRepo serves settings from a fixed map.
type fakeSettingsRepo struct {
	values map[string]string
}

func (f *fakeSettingsRepo) Values(ctx context.Context, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range f.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeSettingsRepo) SetValues(ctx context.Context, values map[string]string) error {
	return nil
}

// fakeFetcher returns a canned fetch result.
type fakeFetcher struct {
	result *ingest.FetchResult
	gotID  uuid.UUID
}

func (f *fakeFetcher) FetchData(ctx context.Context, id uuid.UUID) *ingest.FetchResult {
	f.gotID = id
	return f.result
}

// noUsers satisfies auth.UserGetter for routes that never authenticate.
type noUsers struct{}

func (noUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, apperrors.ErrNotFound
}

type publicDashboardFixture struct {
	mux       *http.ServeMux
	repo      *fakeDashboardRepo
	settings  *fakeSettingsRepo
	fetcher   *fakeFetcher
	sourceID  uuid.UUID
	dashboard uuid.UUID
	card      uuid.UUID
}

func newPublicDashboardFixture(t *testing.T) *publicDashboardFixture {
	t.Helper()

	sourceID := uuid.New()
	dashboardID := uuid.New()
	cardID := uuid.New()

	repo := &fakeDashboardRepo{
		dashboard: &models.Dashboard{ID: dashboardID, Name: "Ops", OwnerID: uuid.New(), IsPublic: true},
		card: &models.DashboardCard{
			ID:                cardID,
			DashboardID:       dashboardID,
			Title:             "Open tickets",
			VisualizationType: models.VisualizationTable,
			DataSourceID:      &sourceID,
		},
	}
	settings := &fakeSettingsRepo{values: map[string]string{
		"access.allow_public_dashboards": "true",
	}}
	fetcher := &fakeFetcher{result: &ingest.FetchResult{
		Data:        []ingest.Row{{"status": "Open"}},
		Fields:      []string{"status"},
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}}

	svc := services.NewDashboardService(repo, services.NewSettingsService(settings))
	handler := NewDashboardHandler(svc, fetcher, zaptest.NewLogger(t))

	mw := auth.NewMiddleware(auth.NewManager("test-session-key"), noUsers{}, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, mw)

	return &publicDashboardFixture{
		mux:       mux,
		repo:      repo,
		settings:  settings,
		fetcher:   fetcher,
		sourceID:  sourceID,
		dashboard: dashboardID,
		card:      cardID,
	}
}

func TestPublicCardDataWithoutSession(t *testing.T) {
	f := newPublicDashboardFixture(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/public/dashboards/"+f.dashboard.String()+"/cards/"+f.card.String()+"/data", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.sourceID, f.fetcher.gotID)

	var result ingest.FetchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, []string{"status"}, result.Fields)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Open", result.Data[0]["status"])
}

func TestPublicCardDataHiddenWhenPolicyOff(t *testing.T) {
	f := newPublicDashboardFixture(t)
	f.settings.values["access.allow_public_dashboards"] = "false"

	req := httptest.NewRequest(http.MethodGet,
		"/api/public/dashboards/"+f.dashboard.String()+"/cards/"+f.card.String()+"/data", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCardDataHiddenWhenUnpublished(t *testing.T) {
	f := newPublicDashboardFixture(t)
	f.repo.dashboard.IsPublic = false

	req := httptest.NewRequest(http.MethodGet,
		"/api/public/dashboards/"+f.dashboard.String()+"/cards/"+f.card.String()+"/data", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCardDataDeletedSource(t *testing.T) {
	f := newPublicDashboardFixture(t)
	f.repo.card.DataSourceID = nil

	req := httptest.NewRequest(http.MethodGet,
		"/api/public/dashboards/"+f.dashboard.String()+"/cards/"+f.card.String()+"/data", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	// Same always-200 contract as authenticated fetches.
	require.Equal(t, http.StatusOK, rec.Code)
	var result ingest.FetchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Data)
}

func TestPublicViewServesMetadataWithoutSession(t *testing.T) {
	f := newPublicDashboardFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/public/dashboards/"+f.dashboard.String(), nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Dashboard models.Dashboard        `json:"dashboard"`
		Cards     []*models.DashboardCard `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Ops", body.Dashboard.Name)
	require.Len(t, body.Cards, 1)
}

func TestAuthenticatedDashboardRoutesRejectAnonymous(t *testing.T) {
	f := newPublicDashboardFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboards/"+f.dashboard.String(), nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
