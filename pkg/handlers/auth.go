package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// AuthHandler handles login, logout and password reset endpoints.
type AuthHandler struct {
	service  *services.AuthService
	sessions *auth.Manager
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *services.AuthService, sessions *auth.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions, logger: logger}
}

// RegisterRoutes registers the auth handler's routes on the given mux. The
// me endpoint is registered behind the auth middleware.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", mw.RequireAuth(http.HandlerFunc(h.Me)))
	mux.HandleFunc("POST /api/auth/password-reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", h.ConfirmPasswordReset)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.sessions.SignIn(w, r, user.ID); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to start session")
		return
	}

	_ = WriteJSON(w, http.StatusOK, user)
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, auth.UserFrom(r.Context()))
}

// RequestPasswordReset mails a reset token. The response is identical for
// known and unknown addresses.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("Failed to issue password reset", zap.Error(err))
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status": "if the address has an account, a reset mail is on its way",
	})
}

// ConfirmPasswordReset redeems a token and sets a new password.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
