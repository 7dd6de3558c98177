package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/Suhaibinator/SRelease/internal/models"
	"gorm.io/gorm"
)

// Store is the data access layer over products, releases and features.
// A Store obtained inside WithTx runs every call on that transaction.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// NewStore wraps an opened GORM connection.
func NewStore(gormDB *gorm.DB) *Store {
	return &Store{db: gormDB}
}

// DB exposes the underlying GORM handle (used by tests and tooling).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Product{}, &models.Release{}, &models.Feature{})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// storeErr classifies a GORM error into the errs taxonomy. A missing record
// is reported as notFound.
func storeErr(op string, err error, notFound ...error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if len(notFound) > 0 {
			return fmt.Errorf("%s: %w", op, notFound[0])
		}
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, errs.ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStore, err)
	}
}

// WithTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back on any error or panic. Calls made on a Store that
// is already transactional join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx := s.conn(ctx).Begin()
	if tx.Error != nil {
		return storeErr("begin transaction", tx.Error)
	}
	// Defer rollback in case of errors
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback() // Rollback on panic
			panic(r)      // Re-panic
		} else if err != nil {
			tx.Rollback() // Rollback on explicit error
		}
	}()

	if err = fn(&Store{db: tx, inTx: true}); err != nil {
		return err
	}
	if cerr := tx.Commit().Error; cerr != nil {
		err = storeErr("commit transaction", cerr)
		return err
	}
	return nil
}

// --- Products ---

// FindProductBySlug returns the product with the given slug.
func (s *Store) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := s.conn(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, storeErr(fmt.Sprintf("find product %q", slug), err, errs.ErrProductNotFound)
	}
	return &product, nil
}

// ListProducts returns every product ordered alphabetically by name.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.conn(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

// --- Releases ---

func orderFeatures(db *gorm.DB) *gorm.DB {
	return db.Order("features.id ASC")
}

// ListReleasesForProduct returns the product's releases, newest release date
// first. With withFeatures each release carries its features in id order.
func (s *Store) ListReleasesForProduct(ctx context.Context, productID uint, withFeatures bool) ([]models.Release, error) {
	q := s.conn(ctx).Where("product_id = ?", productID).Order("release_date DESC").Order("id DESC")
	if withFeatures {
		q = q.Preload("Features", orderFeatures)
	}
	var releases []models.Release
	if err := q.Find(&releases).Error; err != nil {
		return nil, storeErr(fmt.Sprintf("list releases for product %d", productID), err)
	}
	return releases, nil
}

// FindRelease returns the release of productID with the given version.
func (s *Store) FindRelease(ctx context.Context, productID uint, version string, withFeatures bool) (*models.Release, error) {
	q := s.conn(ctx).Where("product_id = ? AND version = ?", productID, version)
	if withFeatures {
		q = q.Preload("Features", orderFeatures)
	}
	var release models.Release
	if err := q.First(&release).Error; err != nil {
		return nil, storeErr(fmt.Sprintf("find release %s of product %d", version, productID), err, errs.ErrReleaseNotFound)
	}
	return &release, nil
}

// LatestRelease returns the release with the newest release date.
func (s *Store) LatestRelease(ctx context.Context, productID uint) (*models.Release, error) {
	var release models.Release
	err := s.conn(ctx).Where("product_id = ?", productID).
		Order("release_date DESC").Order("id DESC").
		First(&release).Error
	if err != nil {
		return nil, storeErr(fmt.Sprintf("latest release of product %d", productID), err, errs.ErrReleaseNotFound)
	}
	return &release, nil
}

// InsertRelease creates a release and returns its generated id. A duplicate
// (productID, version) pair fails with errs.ErrConflict.
func (s *Store) InsertRelease(ctx context.Context, productID uint, version string, date models.Date) (uint, error) {
	release := models.Release{
		ProductID:   productID,
		Version:     version,
		ReleaseDate: date,
	}
	if err := s.conn(ctx).Create(&release).Error; err != nil {
		return 0, storeErr(fmt.Sprintf("insert release %s", version), err)
	}
	return release.ID, nil
}

// UpdateReleaseDate replaces the release date.
func (s *Store) UpdateReleaseDate(ctx context.Context, releaseID uint, date models.Date) error {
	result := s.conn(ctx).Model(&models.Release{}).Where("id = ?", releaseID).Update("release_date", date)
	if result.Error != nil {
		return storeErr(fmt.Sprintf("update release %d", releaseID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update release %d: %w", releaseID, errs.ErrReleaseNotFound)
	}
	return nil
}

// DeleteRelease removes the release's features and then the release, in one transaction.
func (s *Store) DeleteRelease(ctx context.Context, releaseID uint) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.conn(ctx).Where("release_id = ?", releaseID).Delete(&models.Feature{}).Error; err != nil {
			return storeErr(fmt.Sprintf("delete features of release %d", releaseID), err)
		}
		result := tx.conn(ctx).Where("id = ?", releaseID).Delete(&models.Release{})
		if result.Error != nil {
			return storeErr(fmt.Sprintf("delete release %d", releaseID), result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("delete release %d: %w", releaseID, errs.ErrReleaseNotFound)
		}
		return nil
	})
}

// --- Features ---

// InsertFeatures inserts features for releaseID. IDs are written back into the slice.
func (s *Store) InsertFeatures(ctx context.Context, releaseID uint, features []models.Feature) error {
	if len(features) == 0 {
		return nil
	}
	for i := range features {
		features[i].ID = 0
		features[i].ReleaseID = releaseID
	}
	if err := s.conn(ctx).Create(&features).Error; err != nil {
		return storeErr(fmt.Sprintf("insert features for release %d", releaseID), err)
	}
	return nil
}

// ReplaceFeatures deletes every feature of the release and inserts the given
// set, in one transaction. On failure the previous feature set is kept.
func (s *Store) ReplaceFeatures(ctx context.Context, releaseID uint, features []models.Feature) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.conn(ctx).Where("release_id = ?", releaseID).Delete(&models.Feature{}).Error; err != nil {
			return storeErr(fmt.Sprintf("delete features of release %d", releaseID), err)
		}
		return tx.InsertFeatures(ctx, releaseID, features)
	})
}

// FindFeature returns a feature, provided it belongs to releaseID.
func (s *Store) FindFeature(ctx context.Context, releaseID, featureID uint) (*models.Feature, error) {
	var feature models.Feature
	if err := s.conn(ctx).Where("id = ? AND release_id = ?", featureID, releaseID).First(&feature).Error; err != nil {
		return nil, storeErr(fmt.Sprintf("find feature %d", featureID), err, errs.ErrFeatureNotFound)
	}
	return &feature, nil
}

// InsertFeature appends a single feature to its release.
func (s *Store) InsertFeature(ctx context.Context, feature *models.Feature) error {
	feature.ID = 0
	if err := s.conn(ctx).Create(feature).Error; err != nil {
		return storeErr(fmt.Sprintf("insert feature for release %d", feature.ReleaseID), err)
	}
	return nil
}

// UpdateFeature overwrites the title and content of an existing feature.
func (s *Store) UpdateFeature(ctx context.Context, feature *models.Feature) error {
	result := s.conn(ctx).Model(&models.Feature{}).
		Where("id = ? AND release_id = ?", feature.ID, feature.ReleaseID).
		Updates(map[string]interface{}{"title": feature.Title, "content": feature.Content})
	if result.Error != nil {
		return storeErr(fmt.Sprintf("update feature %d", feature.ID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update feature %d: %w", feature.ID, errs.ErrFeatureNotFound)
	}
	return nil
}

// DeleteFeature removes one feature of releaseID.
func (s *Store) DeleteFeature(ctx context.Context, releaseID, featureID uint) error {
	result := s.conn(ctx).Where("id = ? AND release_id = ?", featureID, releaseID).Delete(&models.Feature{})
	if result.Error != nil {
		return storeErr(fmt.Sprintf("delete feature %d", featureID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete feature %d: %w", featureID, errs.ErrFeatureNotFound)
	}
	return nil
}

// --- Counts ---

func (s *Store) count(ctx context.Context, model interface{}, op string, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(model).Scopes(scopes...).Count(&n).Error; err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// CountProducts returns the number of products.
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Product{}, "count products")
}

// CountReleases returns the number of releases across all products.
func (s *Store) CountReleases(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Release{}, "count releases")
}

// CountFeatures returns the number of features across all releases.
func (s *Store) CountFeatures(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Feature{}, "count features")
}

// CountFeaturesForRelease returns the number of features attached to releaseID.
func (s *Store) CountFeaturesForRelease(ctx context.Context, releaseID uint) (int64, error) {
	return s.count(ctx, &models.Feature{}, fmt.Sprintf("count features of release %d", releaseID),
		func(db *gorm.DB) *gorm.DB { return db.Where("release_id = ?", releaseID) })
}
