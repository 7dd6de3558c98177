package api

import (
	"net/http"
	"net/url"

	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/Suhaibinator/SRelease/internal/web"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ReleaseFormData fills the admin release editor.
type ReleaseFormData struct {
	Product  models.Product
	Version  string
	Date     string
	Features []FeatureRequest
	Errors   []response.FieldError
}

func releaseForm(detail *releases.ReleaseDetail) ReleaseFormData {
	features := make([]FeatureRequest, 0, len(detail.Release.Features))
	for _, f := range detail.Release.Features {
		features = append(features, FeatureRequest{Title: f.Title, Content: f.Content})
	}
	return ReleaseFormData{
		Product:  detail.Product,
		Version:  detail.Release.Version,
		Date:     detail.Release.ReleaseDate.String(),
		Features: features,
	}
}

// formFeatures pairs the repeated title and content fields by position.
// Blank content is stored as no content.
func formFeatures(form url.Values) []FeatureRequest {
	titles, contents := form["title"], form["content"]
	out := make([]FeatureRequest, 0, len(titles))
	for i, title := range titles {
		f := FeatureRequest{Title: title}
		if i < len(contents) && contents[i] != "" {
			content := contents[i]
			f.Content = &content
		}
		out = append(out, f)
	}
	return out
}

func adminReleasesPath(slug string) string {
	return "/admin/releases/" + url.PathEscape(slug)
}

// AdminReleasesHandler lists a product's releases with edit and delete controls.
// GET /admin/releases/{product}
func (s *Server) AdminReleasesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ListReleases(r.Context(), mux.Vars(r)["product"])
	if err != nil {
		s.fail(w, r, err, "Failed to fetch releases")
		return
	}
	if wantsJSON(r) {
		response.JSON(w, http.StatusOK, result)
		return
	}
	s.render(w, r, http.StatusOK, web.PageAdminReleases, s.page(r, result.Product.Name+" releases", result))
}

// AdminReleaseHandler shows the editor for one release.
// GET /admin/release/{product}/{version}
func (s *Server) AdminReleaseHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	detail, err := s.service.GetRelease(r.Context(), vars["product"], vars["version"])
	if err != nil {
		s.fail(w, r, err, "Failed to fetch release details")
		return
	}
	if wantsJSON(r) {
		response.JSON(w, http.StatusOK, detail)
		return
	}
	title := "Edit " + detail.Product.Name + " " + detail.Release.Version
	s.render(w, r, http.StatusOK, web.PageAdminRelease, s.page(r, title, releaseForm(detail)))
}

// SaveReleaseFormHandler applies the release editor. Invalid input shows the
// editor again with the submitted values.
// POST /admin/release/{product}/{version}
func (s *Server) SaveReleaseFormHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug, version := vars["product"], vars["version"]

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	req := UpdateReleaseRequest{Date: r.PostFormValue("date"), Features: formFeatures(r.PostForm)}

	var problems []response.FieldError
	if err := s.validate.Struct(&req); err != nil {
		problems = fieldErrors(err)
	} else {
		err := s.service.UpdateRelease(r.Context(), slug, version, mustDate(req.Date), toFeatureInputs(req.Features))
		switch {
		case err == nil:
			s.log.Debug("Release saved from editor", zap.String("admin", adminUser(r.Context())), zap.String("product", slug), zap.String("version", version))
			http.Redirect(w, r, adminReleasesPath(slug), http.StatusSeeOther)
			return
		case errs.StatusFor(err) == http.StatusBadRequest:
			problems = []response.FieldError{{Message: publicMessage(err, "Invalid release")}}
		default:
			s.fail(w, r, err, "Failed to update release")
			return
		}
	}

	product, err := s.service.Product(r.Context(), slug)
	if err != nil {
		s.fail(w, r, err, "Failed to update release")
		return
	}
	data := ReleaseFormData{Product: *product, Version: version, Date: req.Date, Features: req.Features, Errors: problems}
	s.render(w, r, http.StatusBadRequest, web.PageAdminRelease, s.page(r, "Edit "+product.Name+" "+version, data))
}

// DeleteReleaseFormHandler removes a release and returns to the product's list.
// POST /admin/release/{product}/{version}/delete
func (s *Server) DeleteReleaseFormHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug, version := vars["product"], vars["version"]
	if err := s.service.DeleteRelease(r.Context(), slug, version); err != nil {
		s.fail(w, r, err, "Failed to delete release")
		return
	}
	s.log.Debug("Release deleted from admin page", zap.String("admin", adminUser(r.Context())), zap.String("product", slug))
	http.Redirect(w, r, adminReleasesPath(slug), http.StatusSeeOther)
}
