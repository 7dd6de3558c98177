package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up the public site, the admin pages and the release API.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.Use(s.Instrument)
	router.NotFoundHandler = http.HandlerFunc(s.NotFoundHandler)

	// csrf issues tokens on safe requests and checks them on unsafe ones.
	page := func(h http.HandlerFunc) http.Handler { return s.csrf(h) }

	// Admin writes: rate limit, then session (401), then CSRF (403).
	admin := func(h http.HandlerFunc) http.Handler {
		return s.apiLimiter.Middleware(s.RequireAuth(s.csrf(h)))
	}

	// --- Public Routes (No Auth Required) ---

	router.Handle("/", page(s.HomeHandler)).Methods("GET")
	router.HandleFunc("/products", s.ListProductsHandler).Methods("GET")
	router.Handle("/releases/{product}", page(s.ListReleasesHandler)).Methods("GET")
	router.Handle("/releases/{product}/{version}", page(s.GetReleaseHandler)).Methods("GET")
	router.HandleFunc("/uploads/{key:[A-Za-z0-9._-]+}", s.ServeUploadHandler).Methods("GET")
	router.Handle("/csrf-token", page(s.CSRFTokenHandler)).Methods("GET")

	// --- Admin Session ---

	router.Handle("/admin/login", page(s.LoginPageHandler)).Methods("GET")
	router.Handle("/admin/login", s.loginLimiter.Middleware(page(s.LoginHandler))).Methods("POST")
	router.Handle("/admin/logout", page(s.LogoutHandler)).Methods("POST")
	router.Handle("/admin/dashboard", s.RequireAuth(page(s.DashboardHandler))).Methods("GET")
	router.Handle("/admin", http.RedirectHandler("/admin/dashboard", http.StatusSeeOther)).Methods("GET")

	// --- Admin Pages ---

	router.Handle("/admin/releases/{product}", s.RequireAuth(page(s.AdminReleasesHandler))).Methods("GET")
	router.Handle("/admin/release/{product}/{version}", s.RequireAuth(page(s.AdminReleaseHandler))).Methods("GET")
	router.Handle("/admin/release/{product}/{version}", admin(s.SaveReleaseFormHandler)).Methods("POST")
	router.Handle("/admin/release/{product}/{version}/delete", admin(s.DeleteReleaseFormHandler)).Methods("POST")

	// --- Protected Routes (Auth Required) ---

	router.Handle("/releases", admin(s.CreateReleaseHandler)).Methods("POST")
	router.Handle("/releases/{product}/{version}", admin(s.UpdateReleaseHandler)).Methods("PUT")
	router.Handle("/releases/{product}/{version}", admin(s.DeleteReleaseHandler)).Methods("DELETE")
	router.Handle("/releases/{product}/{version}/features", admin(s.AddFeatureHandler)).Methods("POST")
	router.Handle("/releases/{product}/{version}/features/{id:[0-9]+}", admin(s.UpdateFeatureHandler)).Methods("PUT")
	router.Handle("/releases/{product}/{version}/features/{id:[0-9]+}", admin(s.DeleteFeatureHandler)).Methods("DELETE")
	router.Handle("/upload-image", admin(s.UploadImageHandler)).Methods("POST")

	// --- Health Check and Metrics ---
	router.HandleFunc("/health", s.HealthHandler).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
}
