package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStaticCredentials(t *testing.T) {
	creds, err := NewStaticCredentials("admin", "secret123", bcrypt.MinCost)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"valid", "admin", "secret123", true},
		{"wrong password", "admin", "nope", false},
		{"wrong user", "root", "secret123", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := creds.Verify(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err = NewStaticCredentials("admin", "", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestSessionManager_LoginLogout(t *testing.T) {
	m := NewSessionManager("test-secret", false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	require.NoError(t, m.Login(rr, req, "admin"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	authed := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	authed.AddCookie(cookies[0])
	user, ok := m.User(authed)
	assert.True(t, ok)
	assert.Equal(t, "admin", user)

	anon := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	_, ok = m.User(anon)
	assert.False(t, ok)

	// A cookie signed with another secret is rejected. The request must be
	// fresh: sessions caches decoded sessions on the request context.
	other := NewSessionManager("other-secret", false)
	forged := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	forged.AddCookie(cookies[0])
	_, ok = other.User(forged)
	assert.False(t, ok)

	out := httptest.NewRecorder()
	require.NoError(t, m.Logout(out, authed))
	expired := out.Result().Cookies()
	require.Len(t, expired, 1)
	assert.True(t, expired[0].MaxAge < 0)
}
