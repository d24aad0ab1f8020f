// Package auth manages login sessions and route guards.
package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
)

const (
	sessionName   = "dashly_session"
	sessionUserID = "user_id"

	// sessionMaxAge keeps a login alive for a week.
	sessionMaxAge = 7 * 24 * 60 * 60
)

// Manager issues and resolves cookie-backed sessions.
type Manager struct {
	store *sessions.CookieStore
}

// NewManager creates a session manager keyed by the session secret.
func NewManager(sessionKey string) *Manager {
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

// SignIn records the user on the request's session cookie.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values[sessionUserID] = userID.String()
	return session.Save(r, w)
}

// SignOut clears the session cookie.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	delete(session.Values, sessionUserID)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUserID extracts the signed-in user from the session cookie.
func (m *Manager) CurrentUserID(r *http.Request) (uuid.UUID, error) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return uuid.Nil, apperrors.ErrUnauthenticated
	}
	raw, ok := session.Values[sessionUserID].(string)
	if !ok || raw == "" {
		return uuid.Nil, apperrors.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ErrUnauthenticated
	}
	return id, nil
}
