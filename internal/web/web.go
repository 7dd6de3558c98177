// Package web renders the HTML pages of the release notes site.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/sanitize"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageIndex     = "index"
	PageReleases  = "releases"
	PageRelease   = "release"
	PageError     = "error"
	PageLogin     = "login"
	PageDashboard = "dashboard"

	PageAdminReleases = "admin_releases"
	PageAdminRelease  = "admin_release"
)

var pages = []string{PageIndex, PageReleases, PageRelease, PageError, PageLogin, PageDashboard, PageAdminReleases, PageAdminRelease}

// Page is the data passed to every template.
type Page struct {
	Title     string
	Admin     string // Logged-in admin, empty for visitors
	CSRFToken string
	Data      interface{}
}

// ErrorData fills the error page.
type ErrorData struct {
	Status     int
	StatusText string
	Message    string
}

// LoginData fills the login page.
type LoginData struct {
	Username string
	Error    string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every page. Feature content is sanitized again at render
// time before it is marked safe.
func NewRenderer(sanitizer *sanitize.Sanitizer) (*Renderer, error) {
	funcs := template.FuncMap{
		"safeHTML": func(s *string) template.HTML {
			if s == nil {
				return ""
			}
			return template.HTML(sanitizer.HTML(*s))
		},
		"formatDate": func(d models.Date) string {
			return d.Format("January 2, 2006")
		},
	}

	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/features.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base templates: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base template for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render writes page name with the given status. The page is executed into a
// buffer first so a template failure never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.Copy(w, &buf)
	return err
}
