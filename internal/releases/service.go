// Package releases implements release and feature management on top of the store.
package releases

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SRelease/internal/db"
	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/sanitize"
	"go.uber.org/zap"
)

// VersionPattern is the accepted release version shape.
var VersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Column widths of releases.version and features.title.
const (
	MaxVersionLength = 32
	MaxTitleLength   = 255
)

// FeatureInput is a feature as submitted by an admin.
type FeatureInput struct {
	Title   string
	Content *string
}

// CreateReleaseInput carries a new release and its initial features.
type CreateReleaseInput struct {
	Product     string
	Version     string
	ReleaseDate models.Date
	Features    []FeatureInput
}

// ProductReleases is a product with its releases, newest first.
type ProductReleases struct {
	Product  models.Product   `json:"product"`
	Releases []models.Release `json:"releases"`
}

// ReleaseDetail is one release of a product.
type ReleaseDetail struct {
	Product models.Product `json:"product"`
	Release models.Release `json:"release"`
}

// ProductOverview pairs a product with its most recent release, if any.
type ProductOverview struct {
	Product models.Product  `json:"product"`
	Latest  *models.Release `json:"latest_release"`
}

// Stats are the totals shown on the admin dashboard.
type Stats struct {
	Products int64 `json:"products"`
	Releases int64 `json:"releases"`
	Features int64 `json:"features"`
}

// Service is the release and feature CRUD layer.
type Service struct {
	store     *db.Store
	sanitizer *sanitize.Sanitizer
	log       *zap.Logger
}

// NewService creates a Service.
func NewService(store *db.Store, sanitizer *sanitize.Sanitizer, log *zap.Logger) *Service {
	return &Service{store: store, sanitizer: sanitizer, log: log.Named("releases")}
}

func validationErr(format string, args ...interface{}) error {
	return errs.Validation(format, args...)
}

func checkVersion(version string) error {
	if len(version) > MaxVersionLength {
		return validationErr("version exceeds %d characters", MaxVersionLength)
	}
	if !VersionPattern.MatchString(version) {
		return validationErr("version %q must be in x.y.z format", version)
	}
	return nil
}

func checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationErr("feature title is required")
	}
	if len([]rune(title)) > MaxTitleLength {
		return "", validationErr("feature title exceeds %d characters", MaxTitleLength)
	}
	return title, nil
}

// prepareFeatures drops title-less entries and sanitizes content.
func (s *Service) prepareFeatures(inputs []FeatureInput) ([]models.Feature, error) {
	features := make([]models.Feature, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Title) == "" {
			continue
		}
		title, err := checkTitle(in.Title)
		if err != nil {
			return nil, err
		}
		features = append(features, models.Feature{
			Title:   title,
			Content: s.sanitizer.Content(in.Content),
		})
	}
	return features, nil
}

// ListProducts returns every product.
func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Product returns the product with the given slug.
func (s *Service) Product(ctx context.Context, slug string) (*models.Product, error) {
	return s.store.FindProductBySlug(ctx, slug)
}

// ListReleases returns a product's releases, newest first, each with its features.
func (s *Service) ListReleases(ctx context.Context, slug string) (*ProductReleases, error) {
	product, err := s.store.FindProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	releases, err := s.store.ListReleasesForProduct(ctx, product.ID, true)
	if err != nil {
		return nil, err
	}
	if releases == nil {
		releases = []models.Release{}
	}
	for i := range releases {
		normalizeFeatures(&releases[i])
	}
	SortReleases(releases)
	return &ProductReleases{Product: *product, Releases: releases}, nil
}

// GetRelease returns one release of a product with its features in id order.
func (s *Service) GetRelease(ctx context.Context, slug, version string) (*ReleaseDetail, error) {
	product, err := s.store.FindProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	release, err := s.store.FindRelease(ctx, product.ID, version, true)
	if err != nil {
		return nil, err
	}
	normalizeFeatures(release)
	return &ReleaseDetail{Product: *product, Release: *release}, nil
}

// CreateRelease inserts a release and its titled features in one transaction.
func (s *Service) CreateRelease(ctx context.Context, in CreateReleaseInput) (uint, error) {
	if err := checkVersion(in.Version); err != nil {
		return 0, err
	}
	if in.ReleaseDate.IsZero() {
		return 0, validationErr("release date is required")
	}
	features, err := s.prepareFeatures(in.Features)
	if err != nil {
		return 0, err
	}

	var releaseID uint
	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		product, err := tx.FindProductBySlug(ctx, in.Product)
		if err != nil {
			return err
		}
		_, err = tx.FindRelease(ctx, product.ID, in.Version, false)
		if err == nil {
			return fmt.Errorf("release %s of %s: %w", in.Version, in.Product, errs.ErrConflict)
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		releaseID, err = tx.InsertRelease(ctx, product.ID, in.Version, in.ReleaseDate)
		if err != nil {
			return err
		}
		return tx.InsertFeatures(ctx, releaseID, features)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Release created",
		zap.String("product", in.Product),
		zap.String("version", in.Version),
		zap.Uint("release_id", releaseID),
		zap.Int("features", len(features)))
	return releaseID, nil
}

// UpdateRelease replaces the release date and the entire feature set.
func (s *Service) UpdateRelease(ctx context.Context, slug, version string, date models.Date, inputs []FeatureInput) error {
	if date.IsZero() {
		return validationErr("release date is required")
	}
	features, err := s.prepareFeatures(inputs)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		release, err := findRelease(ctx, tx, slug, version)
		if err != nil {
			return err
		}
		if err := tx.UpdateReleaseDate(ctx, release.ID, date); err != nil {
			return err
		}
		return tx.ReplaceFeatures(ctx, release.ID, features)
	})
	if err != nil {
		return err
	}

	s.log.Info("Release updated",
		zap.String("product", slug),
		zap.String("version", version),
		zap.Int("features", len(features)))
	return nil
}

// DeleteRelease removes a release and all of its features.
func (s *Service) DeleteRelease(ctx context.Context, slug, version string) error {
	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		release, err := findRelease(ctx, tx, slug, version)
		if err != nil {
			return err
		}
		return tx.DeleteRelease(ctx, release.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("Release deleted", zap.String("product", slug), zap.String("version", version))
	return nil
}

// AddFeature appends a feature to an existing release.
func (s *Service) AddFeature(ctx context.Context, slug, version string, in FeatureInput) (*models.Feature, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return nil, err
	}
	release, err := findRelease(ctx, s.store, slug, version)
	if err != nil {
		return nil, err
	}
	feature := &models.Feature{
		ReleaseID: release.ID,
		Title:     title,
		Content:   s.sanitizer.Content(in.Content),
	}
	if err := s.store.InsertFeature(ctx, feature); err != nil {
		return nil, err
	}
	s.log.Info("Feature added", zap.String("product", slug), zap.String("version", version), zap.Uint("feature_id", feature.ID))
	return feature, nil
}

// UpdateFeature overwrites the title and content of one feature of a release.
func (s *Service) UpdateFeature(ctx context.Context, slug, version string, featureID uint, in FeatureInput) (*models.Feature, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return nil, err
	}
	var feature *models.Feature
	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		release, err := findRelease(ctx, tx, slug, version)
		if err != nil {
			return err
		}
		feature, err = tx.FindFeature(ctx, release.ID, featureID)
		if err != nil {
			return err
		}
		feature.Title = title
		feature.Content = s.sanitizer.Content(in.Content)
		return tx.UpdateFeature(ctx, feature)
	})
	if err != nil {
		return nil, err
	}
	return feature, nil
}

// DeleteFeature removes one feature of a release.
func (s *Service) DeleteFeature(ctx context.Context, slug, version string, featureID uint) error {
	release, err := findRelease(ctx, s.store, slug, version)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFeature(ctx, release.ID, featureID); err != nil {
		return err
	}
	s.log.Info("Feature deleted", zap.String("product", slug), zap.String("version", version), zap.Uint("feature_id", featureID))
	return nil
}

// Stats returns product, release and feature totals.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.Products, err = s.store.CountProducts(ctx); err != nil {
		return nil, err
	}
	if st.Releases, err = s.store.CountReleases(ctx); err != nil {
		return nil, err
	}
	if st.Features, err = s.store.CountFeatures(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

// Overview returns every product with its latest release.
func (s *Service) Overview(ctx context.Context) ([]ProductOverview, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductOverview, 0, len(products))
	for _, p := range products {
		item := ProductOverview{Product: p}
		latest, err := s.store.LatestRelease(ctx, p.ID)
		switch {
		case err == nil:
			item.Latest = latest
		case !errors.Is(err, errs.ErrNotFound):
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func findRelease(ctx context.Context, store *db.Store, slug, version string) (*models.Release, error) {
	product, err := store.FindProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return store.FindRelease(ctx, product.ID, version, false)
}

func normalizeFeatures(r *models.Release) {
	if r.Features == nil {
		r.Features = []models.Feature{}
	}
}

// SortReleases orders releases by release date descending. Releases sharing
// a date are ordered by semantic version, highest first.
func SortReleases(releases []models.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		di, dj := releases[i].ReleaseDate, releases[j].ReleaseDate
		if !di.Equal(dj.Time) {
			return di.After(dj.Time)
		}
		return CompareVersions(releases[i].Version, releases[j].Version) > 0
	})
}

// CompareVersions compares two versions semantically, falling back to string
// order when either does not parse.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
