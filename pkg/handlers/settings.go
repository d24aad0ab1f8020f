package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/directory"
	"github.com/dashly-io/dashly-engine/pkg/mail"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// SettingsHandler handles system settings endpoints. Every route is
// admin-only.
type SettingsHandler struct {
	service   *services.SettingsService
	directory *directory.Client
	mailer    mail.Mailer
	logger    *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(
	service *services.SettingsService,
	directoryClient *directory.Client,
	mailer mail.Mailer,
	logger *zap.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		service:   service,
		directory: directoryClient,
		mailer:    mailer,
		logger:    logger,
	}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	admin := func(handler http.HandlerFunc) http.Handler {
		return mw.RequireAuth(mw.RequireRole(models.RoleAdmin, handler))
	}

	mux.Handle("GET /api/settings/ldap", admin(h.GetLdap))
	mux.Handle("PUT /api/settings/ldap", admin(h.PutLdap))
	mux.Handle("POST /api/settings/ldap/test", admin(h.TestLdap))
	mux.Handle("GET /api/settings/mail", admin(h.GetMail))
	mux.Handle("PUT /api/settings/mail", admin(h.PutMail))
	mux.Handle("POST /api/settings/mail/test", admin(h.TestMail))
	mux.Handle("GET /api/settings/access", admin(h.GetAccess))
	mux.Handle("PUT /api/settings/access", admin(h.PutAccess))
}

// GetLdap returns the directory settings with the bind password blanked.
func (h *SettingsHandler) GetLdap(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Ldap(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cfg.BindPassword = ""
	_ = WriteJSON(w, http.StatusOK, cfg)
}

// PutLdap stores the directory settings.
func (h *SettingsHandler) PutLdap(w http.ResponseWriter, r *http.Request) {
	var cfg models.LdapSettings
	if err := DecodeJSON(r, &cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.SetLdap(r.Context(), cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_settings", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestLdap verifies a set of credentials against the submitted settings
// without storing anything.
func (h *SettingsHandler) TestLdap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings models.LdapSettings `json:"settings"`
		Username string              `json:"username"`
		Password string              `json:"password"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := h.directory.Authenticate(r.Context(), req.Settings, req.Username, req.Password)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "test_failed", err.Error())
		return
	}

	_ = WriteJSON(w, http.StatusOK, entry)
}

// GetMail returns the SMTP relay settings with the password blanked.
func (h *SettingsHandler) GetMail(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Mail(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cfg.Password = ""
	_ = WriteJSON(w, http.StatusOK, cfg)
}

// PutMail stores the SMTP relay settings.
func (h *SettingsHandler) PutMail(w http.ResponseWriter, r *http.Request) {
	var cfg models.MailSettings
	if err := DecodeJSON(r, &cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.SetMail(r.Context(), cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_settings", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestMail sends a probe message to the caller-supplied address using the
// stored settings.
func (h *SettingsHandler) TestMail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg, err := h.service.Mail(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.mailer.SendTest(r.Context(), cfg, req.To); err != nil {
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "test_failed", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAccess returns the sign-in and publishing policy.
func (h *SettingsHandler) GetAccess(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Access(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, cfg)
}

// PutAccess stores the sign-in and publishing policy.
func (h *SettingsHandler) PutAccess(w http.ResponseWriter, r *http.Request) {
	var cfg models.AccessSettings
	if err := DecodeJSON(r, &cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.SetAccess(r.Context(), cfg); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_settings", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
