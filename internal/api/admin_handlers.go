package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/Suhaibinator/SRelease/internal/storage"
	"github.com/Suhaibinator/SRelease/internal/web"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for multipart framing around the image.
const multipartOverhead = 64 << 10

// CreateReleaseResponse is returned by POST /releases.
type CreateReleaseResponse struct {
	Message   string `json:"message"`
	ReleaseID uint   `json:"release_id"`
}

// DashboardData fills the admin dashboard.
type DashboardData struct {
	Stats    *releases.Stats
	Overview []releases.ProductOverview
}

// LoginPageHandler shows the login form, or the dashboard when already logged in.
// GET /admin/login
func (s *Server) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.User(r); ok {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, web.PageLogin, s.page(r, "Admin login", web.LoginData{}))
}

// LoginHandler authenticates the admin. JSON bodies get a JSON reply; form
// posts are redirected to the dashboard or shown the form again.
// POST /admin/login
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds LoginRequest
	isJSON := r.Header.Get("Content-Type") == "application/json" || wantsJSON(r)
	if isJSON {
		if !s.decodeAndValidate(w, r, &creds) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	}

	ok, err := s.credentials.Verify(r.Context(), creds.Username, creds.Password)
	if err != nil {
		s.fail(w, r, err, "Failed to verify credentials")
		return
	}
	if !ok {
		s.log.Warn("Failed admin login", zap.String("username", creds.Username), zap.String("remote_addr", r.RemoteAddr))
		if isJSON {
			response.Error(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.render(w, r, http.StatusUnauthorized, web.PageLogin, s.page(r, "Admin login", web.LoginData{
			Username: creds.Username,
			Error:    "Invalid username or password",
		}))
		return
	}

	if err := s.sessions.Login(w, r, creds.Username); err != nil {
		s.fail(w, r, err, "Failed to start session")
		return
	}
	s.log.Info("Admin logged in", zap.String("username", creds.Username))
	if isJSON {
		response.Message(w, http.StatusOK, "Logged in")
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// LogoutHandler ends the admin session.
// POST /admin/logout
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.fail(w, r, err, "Failed to end session")
		return
	}
	if wantsJSON(r) {
		response.Message(w, http.StatusOK, "Logged out")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DashboardHandler shows totals and the latest release of each product.
// GET /admin/dashboard
func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to load dashboard")
		return
	}
	overview, err := s.service.Overview(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to load dashboard")
		return
	}
	if wantsJSON(r) {
		response.JSON(w, http.StatusOK, map[string]interface{}{"stats": stats, "products": overview})
		return
	}
	s.render(w, r, http.StatusOK, web.PageDashboard, s.page(r, "Dashboard", DashboardData{Stats: stats, Overview: overview}))
}

// CreateReleaseHandler creates a release with its features.
// POST /releases
func (s *Server) CreateReleaseHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateReleaseRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	id, err := s.service.CreateRelease(r.Context(), releases.CreateReleaseInput{
		Product:     req.Product,
		Version:     req.Version,
		ReleaseDate: mustDate(req.Date),
		Features:    toFeatureInputs(req.Features),
	})
	if err != nil {
		s.fail(w, r, err, "Failed to create release")
		return
	}
	s.log.Info("Release published", zap.String("admin", adminUser(r.Context())), zap.String("product", req.Product), zap.String("version", req.Version))
	response.JSON(w, http.StatusCreated, CreateReleaseResponse{Message: "Release created successfully", ReleaseID: id})
}

// UpdateReleaseHandler replaces a release's date and features.
// PUT /releases/{product}/{version}
func (s *Server) UpdateReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req UpdateReleaseRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	err := s.service.UpdateRelease(r.Context(), vars["product"], vars["version"], mustDate(req.Date), toFeatureInputs(req.Features))
	if err != nil {
		s.fail(w, r, err, "Failed to update release")
		return
	}
	response.Message(w, http.StatusOK, "Release updated successfully")
}

// DeleteReleaseHandler removes a release and its features.
// DELETE /releases/{product}/{version}
func (s *Server) DeleteReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.service.DeleteRelease(r.Context(), vars["product"], vars["version"]); err != nil {
		s.fail(w, r, err, "Failed to delete release")
		return
	}
	response.Message(w, http.StatusOK, "Release deleted successfully")
}

// AddFeatureHandler appends a feature to a release.
// POST /releases/{product}/{version}/features
func (s *Server) AddFeatureHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req FeatureBody
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	feature, err := s.service.AddFeature(r.Context(), vars["product"], vars["version"], releases.FeatureInput{Title: req.Title, Content: req.Content})
	if err != nil {
		s.fail(w, r, err, "Failed to add feature")
		return
	}
	response.JSON(w, http.StatusCreated, feature)
}

// UpdateFeatureHandler overwrites one feature.
// PUT /releases/{product}/{version}/features/{id}
func (s *Server) UpdateFeatureHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		response.ValidationError(w, []response.FieldError{{Field: "id", Message: "Invalid feature id"}})
		return
	}
	var req FeatureBody
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	feature, err := s.service.UpdateFeature(r.Context(), vars["product"], vars["version"], uint(id), releases.FeatureInput{Title: req.Title, Content: req.Content})
	if err != nil {
		s.fail(w, r, err, "Failed to update feature")
		return
	}
	response.JSON(w, http.StatusOK, feature)
}

// DeleteFeatureHandler removes one feature.
// DELETE /releases/{product}/{version}/features/{id}
func (s *Server) DeleteFeatureHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		response.ValidationError(w, []response.FieldError{{Field: "id", Message: "Invalid feature id"}})
		return
	}
	if err := s.service.DeleteFeature(r.Context(), vars["product"], vars["version"], uint(id)); err != nil {
		s.fail(w, r, err, "Failed to delete feature")
		return
	}
	response.Message(w, http.StatusOK, "Feature deleted successfully")
}

// UploadImageHandler stores an image and returns its public URL.
// POST /upload-image
func (s *Server) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.UploadMaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		response.Error(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		s.fail(w, r, err, "Failed to read upload")
		return
	}
	ext, ok := imageExtension(mtype)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Only .png, .jpg, .gif and .webp images are allowed")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.fail(w, r, err, "Failed to read upload")
		return
	}

	key := uuid.NewString() + ext
	contentType := mtype.String()
	if err := s.storage.UploadFile(r.Context(), key, file, header.Size, contentType); err != nil {
		s.fail(w, r, err, "Failed to store image")
		return
	}
	s.metrics.uploads.Inc()
	s.log.Info("Image uploaded", zap.String("key", key), zap.String("content_type", contentType), zap.Int64("size", header.Size))
	response.JSON(w, http.StatusOK, map[string]string{"url": "/uploads/" + key})
}

// imageExtension maps a sniffed type to its key extension if it is an accepted image.
func imageExtension(mtype *mimetype.MIME) (string, bool) {
	for m := mtype; m != nil; m = m.Parent() {
		if ext, ok := storage.ImageTypes[m.String()]; ok {
			return ext, true
		}
	}
	return "", false
}
