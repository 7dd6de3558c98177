package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/go-playground/validator/v10"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// FeatureRequest is one feature in a release payload. Entries with an empty
// title are ignored.
type FeatureRequest struct {
	Title   string  `json:"title" validate:"max=255"`
	Content *string `json:"content"`
}

// CreateReleaseRequest is the body of POST /releases.
type CreateReleaseRequest struct {
	Product  string           `json:"product" validate:"required,product"`
	Version  string           `json:"version" validate:"required,max=32,semver3"`
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	Features []FeatureRequest `json:"features" validate:"required,dive"`
}

// UpdateReleaseRequest is the body of PUT /releases/{product}/{version}.
type UpdateReleaseRequest struct {
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	Features []FeatureRequest `json:"features" validate:"required,dive"`
}

// FeatureBody is the body of the single-feature endpoints.
type FeatureBody struct {
	Title   string  `json:"title" validate:"required,max=255"`
	Content *string `json:"content"`
}

// LoginRequest is the JSON body of POST /admin/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func newValidator(cat *catalog.Catalog) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	custom := map[string]validator.Func{
		"product": func(fl validator.FieldLevel) bool {
			return cat.Has(fl.Field().String())
		},
		"semver3": func(fl validator.FieldLevel) bool {
			return releases.VersionPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return v, nil
}

// fieldErrors turns validator output into response details.
func fieldErrors(err error) []response.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []response.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]response.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, response.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out
}

// fieldPath strips the struct name, e.g. "CreateReleaseRequest.features[0].title".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Slice {
			return "must be an array"
		}
		return "is required"
	case "product":
		return "Invalid product"
	case "semver3":
		return "Invalid version format"
	case "datetime":
		return "Invalid date format"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// the 400 response has been written and false is returned.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		response.ValidationError(w, []response.FieldError{{Field: "body", Message: "Invalid JSON body"}})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		response.ValidationError(w, fieldErrors(err))
		return false
	}
	return true
}

func toFeatureInputs(reqs []FeatureRequest) []releases.FeatureInput {
	out := make([]releases.FeatureInput, 0, len(reqs))
	for _, f := range reqs {
		out = append(out, releases.FeatureInput{Title: f.Title, Content: f.Content})
	}
	return out
}

// mustDate parses a date that has already passed the datetime validator.
func mustDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}
	}
	return d
}
