package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// DataFetcher pulls rows for a stored data source. Satisfied by
// services.DataSourceService.
type DataFetcher interface {
	FetchData(ctx context.Context, id uuid.UUID) *ingest.FetchResult
}

// DashboardHandler handles dashboard and card endpoints.
type DashboardHandler struct {
	service *services.DashboardService
	fetcher DataFetcher
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(service *services.DashboardService, fetcher DataFetcher, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, fetcher: fetcher, logger: logger}
}

// RegisterRoutes registers the dashboard routes. The public view is the only
// unauthenticated route.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	user := func(handler http.HandlerFunc) http.Handler {
		return mw.RequireAuth(handler)
	}

	mux.Handle("GET /api/dashboards", user(h.List))
	mux.Handle("POST /api/dashboards", user(h.Create))
	mux.Handle("GET /api/dashboards/{id}", user(h.Get))
	mux.Handle("PUT /api/dashboards/{id}", user(h.Update))
	mux.Handle("DELETE /api/dashboards/{id}", user(h.Delete))

	mux.Handle("GET /api/dashboards/{id}/cards", user(h.ListCards))
	mux.Handle("POST /api/dashboards/{id}/cards", user(h.AddCard))
	mux.Handle("PATCH /api/dashboards/{id}/layout", user(h.UpdateLayout))
	mux.Handle("PUT /api/cards/{id}", user(h.UpdateCard))
	mux.Handle("DELETE /api/cards/{id}", user(h.DeleteCard))

	mux.HandleFunc("GET /api/public/dashboards/{id}", h.GetPublic)
	mux.HandleFunc("GET /api/public/dashboards/{id}/cards/{cardId}/data", h.GetPublicCardData)
}

type dashboardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
	LogoURL     string `json:"logo_url"`
}

// Create makes a new dashboard owned by the caller.
func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dashboardRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	d, err := h.service.Create(r.Context(), auth.UserFrom(r.Context()), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, d)
}

// Get returns one dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	d, err := h.service.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, d)
}

// List returns the caller's dashboards.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.service.List(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if dashboards == nil {
		dashboards = []*models.Dashboard{}
	}
	_ = WriteJSON(w, http.StatusOK, dashboards)
}

// Update changes a dashboard's metadata.
func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req dashboardRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	d := &models.Dashboard{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		LogoURL:     req.LogoURL,
	}
	if err := h.service.Update(r.Context(), auth.UserFrom(r.Context()), d); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, d)
}

// Delete removes a dashboard and its cards.
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPublic returns a published dashboard and its cards without a session.
func (h *DashboardHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	d, cards, err := h.service.GetPublic(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cards == nil {
		cards = []*models.DashboardCard{}
	}

	_ = WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard": d,
		"cards":     cards,
	})
}

// GetPublicCardData pulls rows for a card on a published dashboard without a
// session. The dashboard must be public and the access policy must allow
// publishing; anything else looks like a missing resource.
func (h *DashboardHandler) GetPublicCardData(w http.ResponseWriter, r *http.Request) {
	dashboardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	cardID, err := pathUUID(r, "cardId")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	card, err := h.service.GetPublicCard(r.Context(), dashboardID, cardID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if card.DataSourceID == nil {
		// The source behind this card was deleted; same always-200 contract
		// as the authenticated fetch.
		_ = WriteJSON(w, http.StatusOK, ingest.Failed(apperrors.ErrNotFound))
		return
	}

	result := h.fetcher.FetchData(r.Context(), *card.DataSourceID)
	if result.Error != "" {
		h.logger.Debug("Public fetch returned error result",
			zap.String("card_id", cardID.String()), zap.String("error", result.Error))
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

type cardRequest struct {
	Title             string          `json:"title"`
	VisualizationType string          `json:"visualization_type"`
	DataSourceID      *uuid.UUID      `json:"data_source_id"`
	X                 int             `json:"x"`
	Y                 int             `json:"y"`
	Width             int             `json:"width"`
	Height            int             `json:"height"`
	Config            json.RawMessage `json:"config"`
}

func (req *cardRequest) card() *models.DashboardCard {
	return &models.DashboardCard{
		Title:             req.Title,
		VisualizationType: req.VisualizationType,
		DataSourceID:      req.DataSourceID,
		X:                 req.X,
		Y:                 req.Y,
		Width:             req.Width,
		Height:            req.Height,
		Config:            req.Config,
	}
}

// AddCard places a card on a dashboard.
func (h *DashboardHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	dashboardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req cardRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	card := req.card()
	card.DashboardID = dashboardID
	if err := h.service.AddCard(r.Context(), auth.UserFrom(r.Context()), card); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, card)
}

// ListCards returns a dashboard's cards.
func (h *DashboardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	dashboardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cards, err := h.service.ListCards(r.Context(), auth.UserFrom(r.Context()), dashboardID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cards == nil {
		cards = []*models.DashboardCard{}
	}
	_ = WriteJSON(w, http.StatusOK, cards)
}

// UpdateCard changes a card's content and placement.
func (h *DashboardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req cardRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	card := req.card()
	card.ID = cardID
	if err := h.service.UpdateCard(r.Context(), auth.UserFrom(r.Context()), card); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, card)
}

// DeleteCard removes a card.
func (h *DashboardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.DeleteCard(r.Context(), auth.UserFrom(r.Context()), cardID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateLayout applies bulk card position changes.
func (h *DashboardHandler) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	dashboardID, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req struct {
		Cards []repositories.CardLayout `json:"cards"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.UpdateLayout(r.Context(), auth.UserFrom(r.Context()), dashboardID, req.Cards); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
