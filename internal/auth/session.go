package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "srelease_session"
	userKey     = "username"
	// SessionMaxAge is the admin session lifetime in seconds.
	SessionMaxAge = 24 * 60 * 60
)

// SessionManager stores the logged-in admin in a signed, encrypted cookie.
type SessionManager struct {
	store sessions.Store
}

// NewSessionManager derives cookie keys from secret.
func NewSessionManager(secret string, secure bool) *SessionManager {
	hashKey := sha256.Sum256([]byte("hash:" + secret))
	blockKey := sha256.Sum256([]byte("block:" + secret))
	store := sessions.NewCookieStore(hashKey[:], blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   SessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Login records username in a fresh session cookie.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, username string) error {
	sess, err := m.store.New(r, sessionName)
	if sess == nil {
		return err
	}
	sess.Values[userKey] = username
	return sess.Save(r, w)
}

// Logout expires the session cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, sessionName)
	if sess == nil {
		return nil
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// User returns the logged-in admin, if any.
func (m *SessionManager) User(r *http.Request) (string, bool) {
	sess, err := m.store.Get(r, sessionName)
	if err != nil || sess == nil {
		return "", false
	}
	username, ok := sess.Values[userKey].(string)
	return username, ok && username != ""
}
