package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var htmlAccept = map[string]string{"Accept": "text/html"}

// postForm submits a logged-in browser form with the CSRF field set.
func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	token, cookies := e.login(t)
	form.Set("gorilla.csrf.Token", token)
	return e.do(t, request{
		method:  http.MethodPost,
		path:    path,
		body:    strings.NewReader(form.Encode()),
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded", "Accept": "text/html"},
		cookies: cookies,
	})
}

func TestAdminPages_RequireLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin/releases/marcom", "/admin/release/marcom/2.1.0"} {
		t.Run(path, func(t *testing.T) {
			rr := env.do(t, request{method: http.MethodGet, path: path, headers: htmlAccept})
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, "/admin/login", rr.Header().Get("Location"))

			rr = env.do(t, request{method: http.MethodGet, path: path, headers: map[string]string{"Accept": "application/json"}})
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}

	rr := env.do(t, request{
		method:  http.MethodPost,
		path:    "/admin/release/marcom/2.1.0/delete",
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminReleasesPage(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.login(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/admin/releases/marcom", headers: htmlAccept, cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Advanced Analytics Dashboard")
	assert.Contains(t, body, "Complete UI Redesign")
	assert.Contains(t, body, `href="/admin/release/marcom/2.1.0"`)
	assert.Contains(t, body, `action="/admin/release/marcom/2.1.0/delete"`)
	assert.Contains(t, body, `datetime="2024-03-15"`)
	assert.NotContains(t, body, `name="gorilla.csrf.Token" value=""`)

	rr = env.do(t, request{method: http.MethodGet, path: "/admin/releases/marcom", headers: map[string]string{"Accept": "application/json"}, cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)
	var list releases.ProductReleases
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, "marcom", list.Product.Slug)
	assert.Len(t, list.Releases, 2)

	rr = env.do(t, request{method: http.MethodGet, path: "/admin/releases/ghost", headers: htmlAccept, cookies: cookies})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Product not found")
}

func TestAdminReleasePage_EditForm(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.login(t)

	rr := env.do(t, request{method: http.MethodGet, path: "/admin/release/marcom/2.1.0", headers: htmlAccept, cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `action="/admin/release/marcom/2.1.0"`)
	assert.Contains(t, body, `name="date" value="2024-03-15"`)
	assert.Contains(t, body, `value="Advanced Analytics Dashboard"`)
	assert.Contains(t, body, "&lt;p&gt;New analytics dashboard")

	rr = env.do(t, request{method: http.MethodGet, path: "/admin/release/marcom/9.9.9", headers: htmlAccept, cookies: cookies})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Release not found")
}

func TestSaveReleaseForm(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm(t, "/admin/release/marcom/2.1.0", url.Values{
		"date":    {"2024-06-01"},
		"title":   {"Reworked dashboard", ""},
		"content": {"<p>New widgets</p>", ""},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, "/admin/releases/marcom", rr.Header().Get("Location"))

	rr = env.do(t, request{method: http.MethodGet, path: "/releases/marcom/2.1.0"})
	require.Equal(t, http.StatusOK, rr.Code)
	var detail releases.ReleaseDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, "2024-06-01", detail.Release.ReleaseDate.String())
	require.Len(t, detail.Release.Features, 1)
	assert.Equal(t, "Reworked dashboard", detail.Release.Features[0].Title)
	require.NotNil(t, detail.Release.Features[0].Content)
	assert.Equal(t, "<p>New widgets</p>", *detail.Release.Features[0].Content)
}

func TestSaveReleaseForm_InvalidKeepsInput(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm(t, "/admin/release/marcom/2.1.0", url.Values{
		"date":    {"06/01/2024"},
		"title":   {"Draft title"},
		"content": {""},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "date: Invalid date format")
	assert.Contains(t, body, `value="Draft title"`)

	rr = env.do(t, request{method: http.MethodGet, path: "/releases/marcom/2.1.0"})
	var detail releases.ReleaseDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, "2024-03-15", detail.Release.ReleaseDate.String())
	assert.Len(t, detail.Release.Features, 2)
}

func TestSaveReleaseForm_RequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.login(t)

	form := url.Values{"date": {"2024-06-01"}, "title": {"x"}}
	rr := env.do(t, request{
		method:  http.MethodPost,
		path:    "/admin/release/marcom/2.1.0",
		body:    strings.NewReader(form.Encode()),
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		cookies: cookies,
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeleteReleaseForm(t *testing.T) {
	env := newTestEnv(t)
	before := env.releaseCount(t)

	rr := env.postForm(t, "/admin/release/marcom/2.1.0/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, "/admin/releases/marcom", rr.Header().Get("Location"))
	assert.Equal(t, before-1, env.releaseCount(t))

	rr = env.do(t, request{method: http.MethodGet, path: "/releases/marcom/2.1.0"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.postForm(t, "/admin/release/marcom/2.1.0/delete", url.Values{})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
