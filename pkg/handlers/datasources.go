package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// DataSourceHandler handles data source CRUD, connection tests and fetches.
type DataSourceHandler struct {
	service *services.DataSourceService
	logger  *zap.Logger
}

// NewDataSourceHandler creates a new DataSourceHandler.
func NewDataSourceHandler(service *services.DataSourceService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{service: service, logger: logger}
}

// RegisterRoutes registers the data source routes. Mutations are admin-only;
// reads and fetches need any session.
func (h *DataSourceHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	admin := func(handler http.HandlerFunc) http.Handler {
		return mw.RequireAuth(mw.RequireRole(models.RoleAdmin, handler))
	}
	user := func(handler http.HandlerFunc) http.Handler {
		return mw.RequireAuth(handler)
	}

	mux.Handle("GET /api/datasource-types", user(h.ListTypes))
	mux.Handle("GET /api/datasources", user(h.List))
	mux.Handle("POST /api/datasources", admin(h.Create))
	mux.Handle("POST /api/datasources/test", admin(h.Test))
	mux.Handle("GET /api/datasources/{id}", admin(h.Get))
	mux.Handle("PUT /api/datasources/{id}", admin(h.Update))
	mux.Handle("PATCH /api/datasources/{id}/active", admin(h.SetActive))
	mux.Handle("DELETE /api/datasources/{id}", admin(h.Delete))
	mux.Handle("GET /api/datasources/{id}/data", user(h.FetchData))
}

// ListTypes returns the adapter types compiled into this build.
func (h *DataSourceHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, h.service.ListTypes())
}

type dataSourceRequest struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// Create persists a new data source.
func (h *DataSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dataSourceRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Name == "" || req.Type == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "name and type are required")
		return
	}

	ds, err := h.service.Create(r.Context(), req.Name, req.Type, req.Config)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, ds)
}

// Get returns a data source with its decrypted config so admins can edit
// it.
func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ds, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ds)
}

// List returns all data sources without configs.
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sources == nil {
		sources = []*models.DataSource{}
	}
	_ = WriteJSON(w, http.StatusOK, sources)
}

// Update replaces a data source's name and config.
func (h *DataSourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req dataSourceRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ds, err := h.service.Update(r.Context(), id, req.Name, req.Config)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ds)
}

// SetActive toggles a source's auto refresh participation.
func (h *DataSourceHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.SetActive(r.Context(), id, req.Active); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a data source.
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Test probes an unsaved config. Probe failures come back as 422 with the
// reason so the builder UI can surface it.
func (h *DataSourceHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req dataSourceRequest
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.service.Test(r.Context(), req.Type, req.Config)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "test_failed", err.Error())
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

// FetchData pulls rows for a source. The response is always 200; failures
// travel inside the result body.
func (h *DataSourceHandler) FetchData(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result := h.service.FetchData(r.Context(), id)
	if result.Error != "" {
		h.logger.Debug("Fetch returned error result", zap.String("id", id.String()), zap.String("error", result.Error))
	}
	_ = WriteJSON(w, http.StatusOK, result)
}
