package api

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ettore-crm/internal/logging"
)

const (
	sessionName      = "ettore_session"
	sessionUserIDKey = "user_id"
	sessionMaxAge    = 86400 * 30
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// SessionManager stores the signed-in account in a signed cookie
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie-backed session manager
func NewSessionManager(secret string, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// UserID returns the account of the request's session, if any
func (m *SessionManager) UserID(r *http.Request) (string, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[sessionUserIDKey].(string)
	return id, ok && id != ""
}

// SignIn writes a session cookie for userID
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	// A stale or forged cookie fails to decode; a fresh session replaces it.
	session, _ := m.store.New(r, sessionName)
	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// SignOut expires the session cookie
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.New(r, sessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth rejects requests without a session and puts the owner id on
// the request context
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessions.UserID(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, MsgUnauthorized, nil)
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, userID)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("user_id", userID))
		next(w, r.WithContext(ctx))
	})
}

// ownerID returns the authenticated account of the request
func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(ownerIDKey).(string)
	return id
}
