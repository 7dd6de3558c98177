package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/auth"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/config"
	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/Suhaibinator/SRelease/internal/sanitize"
	"github.com/Suhaibinator/SRelease/internal/storage"
	"github.com/Suhaibinator/SRelease/internal/web"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// Server wires the HTTP handlers to their dependencies.
type Server struct {
	cfg          config.Config
	service      *releases.Service
	storage      storage.StorageProvider
	credentials  auth.CredentialStore
	sessions     *auth.SessionManager
	renderer     *web.Renderer
	validate     *validator.Validate
	metrics      *Metrics
	csrf         func(http.Handler) http.Handler
	apiLimiter   *RateLimiter
	loginLimiter *RateLimiter
	log          *zap.Logger
}

// NewServer builds a Server from its collaborators.
func NewServer(cfg config.Config, service *releases.Service, store storage.StorageProvider,
	credentials auth.CredentialStore, cat *catalog.Catalog, log *zap.Logger) (*Server, error) {
	renderer, err := web.NewRenderer(sanitize.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}
	validate, err := newValidator(cat)
	if err != nil {
		return nil, err
	}
	log = log.Named("api")
	return &Server{
		cfg:          cfg,
		service:      service,
		storage:      store,
		credentials:  credentials,
		sessions:     auth.NewSessionManager(cfg.SessionSecret, cfg.CookieSecure),
		renderer:     renderer,
		validate:     validate,
		metrics:      newMetrics(),
		csrf:         newCSRF(cfg.CsrfKey, cfg.CookieSecure, cfg.CsrfTrustedOrigins, log),
		apiLimiter:   NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		loginLimiter: NewRateLimiter(cfg.LoginRateLimit, cfg.RateLimitWindow),
		log:          log,
	}, nil
}

// publicMessage is the client-facing text for err; fallback covers store failures.
func publicMessage(err error, fallback string) string {
	var verr *errs.ValidationError
	switch {
	case errors.Is(err, errs.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, errs.ErrReleaseNotFound):
		return "Release not found"
	case errors.Is(err, errs.ErrFeatureNotFound):
		return "Feature not found"
	case errors.Is(err, errs.ErrNotFound):
		return "Not found"
	case errors.Is(err, errs.ErrConflict):
		return "Release with this version already exists"
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, errs.ErrValidation):
		return "Validation failed"
	case errors.Is(err, errs.ErrUnauthorized):
		return "Unauthorized: Please log in"
	case errors.Is(err, errs.ErrForbidden):
		return "Forbidden"
	default:
		return fallback
	}
}

// fail writes err as a JSON error or, for browser navigation, the error page.
// Internal detail is only exposed outside production.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := errs.StatusFor(err)
	message := publicMessage(err, fallback)
	if status >= http.StatusInternalServerError {
		s.log.Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.log.Debug("Request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	if r.Method == http.MethodGet && wantsHTML(r) {
		s.renderError(w, r, status, message)
		return
	}
	if status >= http.StatusInternalServerError && !s.cfg.IsProduction() {
		response.ErrorDetail(w, status, message, err.Error())
		return
	}
	response.Error(w, status, message)
}

// page builds the common template data for r.
func (s *Server) page(r *http.Request, title string, data interface{}) web.Page {
	user, _ := s.sessions.User(r)
	return web.Page{
		Title:     title,
		Admin:     user,
		CSRFToken: csrf.Token(r),
		Data:      data,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page web.Page) {
	if err := s.renderer.Render(w, status, name, page); err != nil {
		s.log.Error("Failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	text := http.StatusText(status)
	s.render(w, r, status, web.PageError, s.page(r, text, web.ErrorData{
		Status:     status,
		StatusText: text,
		Message:    message,
	}))
}
