package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Suhaibinator/SRelease/internal/auth"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/config"
	"github.com/Suhaibinator/SRelease/internal/db"
	"github.com/Suhaibinator/SRelease/internal/db/dbtest"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/Suhaibinator/SRelease/internal/sanitize"
	"github.com/Suhaibinator/SRelease/internal/storage"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Test Setup ---

func testConfig() config.Config {
	return config.Config{
		Environment:       "development",
		UploadMaxBytes:    5 << 20,
		SessionSecret:     "test-session-secret",
		CsrfKey:           "test-csrf-key",
		CookieSecure:      false,
		AdminUsername:     "admin",
		AdminPassword:     "secret123",
		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
		LoginRateLimit:    5,
	}
}

type testEnv struct {
	router *mux.Router
	server *Server
	store  *db.Store
	fs     afero.Fs

	// Cached admin login, reused so tests stay under the login rate limit.
	token   string
	cookies []*http.Cookie
}

type envOption func(*config.Config, **catalog.Catalog)

func withConfig(f func(*config.Config)) envOption {
	return func(c *config.Config, _ **catalog.Catalog) { f(c) }
}

func withCatalog(cat *catalog.Catalog) envOption {
	return func(_ *config.Config, c **catalog.Catalog) { *c = cat }
}

func newTestEnvWithStore(t *testing.T, store *db.Store, opts ...envOption) *testEnv {
	t.Helper()
	cfg := testConfig()
	cat := catalog.Default()
	for _, o := range opts {
		o(&cfg, &cat)
	}

	fs := afero.NewMemMapFs()
	files, err := storage.NewLocalStorage(fs, "/uploads", zap.NewNop())
	require.NoError(t, err)
	creds, err := auth.NewStaticCredentials(cfg.AdminUsername, cfg.AdminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	service := releases.NewService(store, sanitize.New(), zap.NewNop())

	srv, err := NewServer(cfg, service, files, creds, cat, zap.NewNop())
	require.NoError(t, err)
	router := mux.NewRouter()
	srv.RegisterRoutes(router)
	return &testEnv{router: router, server: srv, store: store, fs: fs}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, dbtest.NewStore(t, true), opts...)
}

type request struct {
	method  string
	path    string
	body    io.Reader
	headers map[string]string
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(req.method, req.path, req.body)
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, r)
	return rr
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// mergeCookies returns base with cookies from rr replacing same-named ones.
func mergeCookies(base []*http.Cookie, rr *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var order []string
	for _, c := range append(append([]*http.Cookie{}, base...), rr.Result().Cookies()...) {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

// csrfToken fetches a token and the cookie it is bound to.
func (e *testEnv) csrfToken(t *testing.T, cookies []*http.Cookie) (string, []*http.Cookie) {
	t.Helper()
	rr := e.do(t, request{method: http.MethodGet, path: "/csrf-token", cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token, mergeCookies(cookies, rr)
}

// login returns the session and CSRF cookies plus a valid CSRF token.
func (e *testEnv) login(t *testing.T) (string, []*http.Cookie) {
	t.Helper()
	if e.cookies != nil {
		return e.token, e.cookies
	}
	token, cookies := e.csrfToken(t, nil)
	rr := e.do(t, request{
		method:  http.MethodPost,
		path:    "/admin/login",
		body:    jsonBody(t, map[string]string{"username": "admin", "password": "secret123"}),
		headers: map[string]string{"Content-Type": "application/json", "X-CSRF-Token": token},
		cookies: cookies,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	e.token, e.cookies = token, mergeCookies(cookies, rr)
	return e.token, e.cookies
}

// admin sends an authenticated JSON request.
func (e *testEnv) admin(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	token, cookies := e.login(t)
	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}
	return e.do(t, request{
		method:  method,
		path:    path,
		body:    reader,
		headers: map[string]string{"Content-Type": "application/json", "X-CSRF-Token": token},
		cookies: cookies,
	})
}

// --- Public Routes ---

func TestListProductsHandler_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/products"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ListProductsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Products, 3)
	slugs := []string{body.Products[0].Slug, body.Products[1].Slug, body.Products[2].Slug}
	assert.Equal(t, []string{"collaborate", "lam", "marcom"}, slugs)
}

func TestListProductsHandler_DBError(t *testing.T) {
	for _, tc := range []struct {
		env  string
		want string
	}{
		{"production", `{"error":"Failed to retrieve products"}`},
		{"development", `{"error":"Failed to retrieve products","detail":"list products: store error: connection refused"}`},
	} {
		t.Run(tc.env, func(t *testing.T) {
			store, mock := dbtest.NewMockStore(t)
			env := newTestEnvWithStore(t, store, withConfig(func(c *config.Config) { c.Environment = tc.env }))

			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" ORDER BY name ASC`)).
				WillReturnError(errors.New("connection refused"))

			rr := env.do(t, request{method: http.MethodGet, path: "/products"})
			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, tc.want, rr.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListReleasesHandler_JSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/releases/marcom", headers: map[string]string{"Accept": "application/json"}})
	require.Equal(t, http.StatusOK, rr.Code)

	var body releases.ProductReleases
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "marcom", body.Product.Slug)
	require.Len(t, body.Releases, 2)
	assert.Equal(t, "2.1.0", body.Releases[0].Version)
	assert.Equal(t, "2.0.0", body.Releases[1].Version)
	require.Len(t, body.Releases[0].Features, 2)
	assert.Equal(t, "Advanced Analytics Dashboard", body.Releases[0].Features[0].Title)
	assert.Contains(t, rr.Body.String(), `"release_date":"2024-03-15"`)
}

func TestListReleasesHandler_HTML(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/releases/lam", headers: map[string]string{"Accept": "text/html,application/xhtml+xml"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Lam releases")
	assert.Contains(t, rr.Body.String(), "Interactive Assessment Builder")
}

func TestListReleasesHandler_XHRGetsJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/releases/lam", headers: map[string]string{
		"Accept":           "text/html",
		"X-Requested-With": "XMLHttpRequest",
	}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestGetReleaseHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/releases/collaborate/1.4.0"})
	require.Equal(t, http.StatusOK, rr.Code)

	var body releases.ReleaseDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "collaborate", body.Product.Slug)
	assert.Equal(t, "1.4.0", body.Release.Version)
	require.Len(t, body.Release.Features, 1)
	assert.Equal(t, "Project Templates", body.Release.Features[0].Title)
}

func TestGetReleaseHandler_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/releases/ghost"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, rr.Body.String())

	rr = env.do(t, request{method: http.MethodGet, path: "/releases/marcom/9.9.9"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Release not found"}`, rr.Body.String())

	rr = env.do(t, request{method: http.MethodGet, path: "/releases/marcom/9.9.9", headers: map[string]string{"Accept": "text/html"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Release not found")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestHomeHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/", headers: map[string]string{"Accept": "text/html"}})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Marcom")
	assert.Contains(t, body, `/releases/marcom/2.1.0`)
}

func TestCSRFTokenHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/csrf-token"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"csrf_token"`)
	assert.NotEmpty(t, rr.Result().Cookies())
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	env.do(t, request{method: http.MethodGet, path: "/products"})
	rr = env.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `srelease_http_requests_total{code="200",method="GET",route="/products"}`)
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/no/such/page/here"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
}

func TestServeUploadHandler(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, afero.WriteFile(env.fs, "/uploads/abc.gif", []byte("GIF89a...."), 0o644))

	rr := env.do(t, request{method: http.MethodGet, path: "/uploads/abc.gif"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/gif", rr.Header().Get("Content-Type"))
	assert.Equal(t, "GIF89a....", rr.Body.String())

	rr = env.do(t, request{method: http.MethodGet, path: "/uploads/missing.png"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "Not found"))
}
