package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/models"
)

type contextKey string

const userContextKey contextKey = "auth.user"

// UserGetter is the slice of the user repository the middleware needs.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Middleware guards routes behind a valid session.
type Middleware struct {
	manager *Manager
	users   UserGetter
	logger  *zap.Logger
}

// UserFrom returns the authenticated user stored on the request context, or
// nil when the request is unauthenticated.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// WithUser returns a copy of ctx carrying the user. Exposed for handler
// tests.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(manager *Manager, users UserGetter, logger *zap.Logger) *Middleware {
	return &Middleware{manager: manager, users: users, logger: logger}
}

// RequireAuth rejects requests without a valid session and stores the
// resolved user on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.manager.CurrentUserID(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			m.logger.Debug("Session references unknown user", zap.String("user_id", userID.String()))
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireRole rejects authenticated requests whose user lacks the role.
// It must run inside RequireAuth.
func (m *Middleware) RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if user.Role != role {
			writeAuthError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
