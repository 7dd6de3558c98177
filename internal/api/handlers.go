package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/web"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ListProductsResponse defines the structure for the list products endpoint.
type ListProductsResponse struct {
	Products []models.Product `json:"products"`
}

// HomeHandler renders the product overview.
// GET /
func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	overview, err := s.service.Overview(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to load products")
		return
	}
	if wantsJSON(r) {
		response.JSON(w, http.StatusOK, map[string]interface{}{"products": overview})
		return
	}
	s.render(w, r, http.StatusOK, web.PageIndex, s.page(r, "Products", overview))
}

// ListProductsHandler handles requests to list all products.
// GET /products
func (s *Server) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to retrieve products")
		return
	}
	response.JSON(w, http.StatusOK, ListProductsResponse{Products: products})
}

// ListReleasesHandler lists a product's releases with their features.
// GET /releases/{product}
func (s *Server) ListReleasesHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["product"]

	result, err := s.service.ListReleases(r.Context(), slug)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch releases")
		return
	}
	if wantsHTML(r) {
		s.render(w, r, http.StatusOK, web.PageReleases, s.page(r, result.Product.Name+" releases", result))
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetReleaseHandler returns a single release.
// GET /releases/{product}/{version}
func (s *Server) GetReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug, version := vars["product"], vars["version"]

	result, err := s.service.GetRelease(r.Context(), slug, version)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch release details")
		return
	}
	if wantsHTML(r) {
		title := result.Product.Name + " " + result.Release.Version
		s.render(w, r, http.StatusOK, web.PageRelease, s.page(r, title, result))
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// ServeUploadHandler streams a stored image.
// GET /uploads/{key}
func (s *Server) ServeUploadHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	obj, err := s.storage.DownloadFile(r.Context(), key)
	if err != nil {
		s.fail(w, r, err, "Failed to read uploaded file")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		s.log.Warn("Failed to stream uploaded file", zap.String("key", key), zap.Error(err))
	}
}

// CSRFTokenHandler issues a CSRF token and sets its cookie.
// GET /csrf-token
func (s *Server) CSRFTokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

// HealthHandler reports liveness.
// GET /health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// NotFoundHandler answers unmatched routes.
func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && wantsHTML(r) {
		s.renderError(w, r, http.StatusNotFound, "The page you requested does not exist.")
		return
	}
	response.Error(w, http.StatusNotFound, "Not found")
}
