package db_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/db"
	"github.com/Suhaibinator/SRelease/internal/db/dbtest"
	"github.com/Suhaibinator/SRelease/internal/errs"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)

	products, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, products)
	releases, err := store.CountReleases(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, releases)
	features, err := store.CountFeatures(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 9, features)

	require.NoError(t, store.Seed(ctx, catalog.Default(), true, zap.NewNop()))

	products, _ = store.CountProducts(ctx)
	releases, _ = store.CountReleases(ctx)
	features, _ = store.CountFeatures(ctx)
	assert.EqualValues(t, 3, products)
	assert.EqualValues(t, 6, releases)
	assert.EqualValues(t, 9, features)
}

func TestListProducts_OrderedByName(t *testing.T) {
	store := dbtest.NewStore(t, false)

	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "collaborate", products[0].Slug)
	assert.Equal(t, "lam", products[1].Slug)
	assert.Equal(t, "marcom", products[2].Slug)
}

func TestFindProductBySlug_NotFound(t *testing.T) {
	store := dbtest.NewStore(t, false)

	_, err := store.FindProductBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListReleasesForProduct(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)
	marcom, err := store.FindProductBySlug(ctx, "marcom")
	require.NoError(t, err)

	releases, err := store.ListReleasesForProduct(ctx, marcom.ID, true)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "2.1.0", releases[0].Version)
	assert.Equal(t, "2024-03-15", releases[0].ReleaseDate.String())
	assert.Equal(t, "2.0.0", releases[1].Version)

	require.Len(t, releases[0].Features, 2)
	assert.Equal(t, "Advanced Analytics Dashboard", releases[0].Features[0].Title)
	assert.Equal(t, "Social Media Integration", releases[0].Features[1].Title)
	assert.Less(t, releases[0].Features[0].ID, releases[0].Features[1].ID)

	bare, err := store.ListReleasesForProduct(ctx, marcom.ID, false)
	require.NoError(t, err)
	require.Len(t, bare, 2)
	assert.Nil(t, bare[0].Features)
}

func TestInsertRelease_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, false)
	lam, err := store.FindProductBySlug(ctx, "lam")
	require.NoError(t, err)

	id, err := store.InsertRelease(ctx, lam.ID, "1.0.0", models.MustParseDate("2024-01-01"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = store.InsertRelease(ctx, lam.ID, "1.0.0", models.MustParseDate("2024-02-01"))
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestReplaceFeatures(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)
	collaborate, err := store.FindProductBySlug(ctx, "collaborate")
	require.NoError(t, err)
	release, err := store.FindRelease(ctx, collaborate.ID, "1.5.0", false)
	require.NoError(t, err)

	err = store.ReplaceFeatures(ctx, release.ID, []models.Feature{
		{Title: "Only feature", Content: strPtr("<p>x</p>")},
	})
	require.NoError(t, err)

	got, err := store.FindRelease(ctx, collaborate.ID, "1.5.0", true)
	require.NoError(t, err)
	require.Len(t, got.Features, 1)
	assert.Equal(t, "Only feature", got.Features[0].Title)
	assert.Equal(t, release.ID, got.Features[0].ReleaseID)

	require.NoError(t, store.ReplaceFeatures(ctx, release.ID, nil))
	n, err := store.CountFeaturesForRelease(ctx, release.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteRelease_RemovesFeatures(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)
	lam, err := store.FindProductBySlug(ctx, "lam")
	require.NoError(t, err)
	release, err := store.FindRelease(ctx, lam.ID, "3.2.0", false)
	require.NoError(t, err)

	require.NoError(t, store.DeleteRelease(ctx, release.ID))

	_, err = store.FindRelease(ctx, lam.ID, "3.2.0", false)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	n, err := store.CountFeaturesForRelease(ctx, release.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, store.DeleteRelease(ctx, release.ID), errs.ErrNotFound)
}

func TestFeatureCRUD(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)
	marcom, err := store.FindProductBySlug(ctx, "marcom")
	require.NoError(t, err)
	release, err := store.FindRelease(ctx, marcom.ID, "2.0.0", false)
	require.NoError(t, err)

	feature := &models.Feature{ReleaseID: release.ID, Title: "Added"}
	require.NoError(t, store.InsertFeature(ctx, feature))
	assert.NotZero(t, feature.ID)

	feature.Title = "Renamed"
	feature.Content = strPtr("<p>body</p>")
	require.NoError(t, store.UpdateFeature(ctx, feature))

	got, err := store.FindFeature(ctx, release.ID, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.NotNil(t, got.Content)
	assert.Equal(t, "<p>body</p>", *got.Content)

	// A feature addressed through the wrong release is not found.
	_, err = store.FindFeature(ctx, release.ID+1000, feature.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, store.DeleteFeature(ctx, release.ID, feature.ID))
	assert.ErrorIs(t, store.DeleteFeature(ctx, release.ID, feature.ID), errs.ErrNotFound)
}

func TestUpdateReleaseDate(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, true)
	marcom, err := store.FindProductBySlug(ctx, "marcom")
	require.NoError(t, err)
	release, err := store.FindRelease(ctx, marcom.ID, "2.0.0", false)
	require.NoError(t, err)

	require.NoError(t, store.UpdateReleaseDate(ctx, release.ID, models.MustParseDate("2024-05-01")))

	latest, err := store.LatestRelease(ctx, marcom.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", latest.Version)
	assert.Equal(t, "2024-05-01", latest.ReleaseDate.String())

	assert.ErrorIs(t, store.UpdateReleaseDate(ctx, 9999, models.MustParseDate("2024-05-01")), errs.ErrNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t, false)
	lam, err := store.FindProductBySlug(ctx, "lam")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(tx *db.Store) error {
		if _, err := tx.InsertRelease(ctx, lam.ID, "9.0.0", models.MustParseDate("2024-01-01")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.CountReleases(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplaceFeatures_InsertFailureRollsBack(t *testing.T) {
	store, mock := dbtest.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "features" WHERE release_id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "features"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.ReplaceFeatures(context.Background(), 7, []models.Feature{{Title: "A"}})
	assert.ErrorIs(t, err, errs.ErrStore)
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRelease_CommitsBothStatements(t *testing.T) {
	store, mock := dbtest.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "features" WHERE release_id = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "releases" WHERE id = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteRelease(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	store, mock := dbtest.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithTx(context.Background(), func(tx *db.Store) error {
			panic("unexpected")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	store, mock := dbtest.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "features" WHERE release_id = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx *db.Store) error {
		return tx.ReplaceFeatures(context.Background(), 5, nil)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_StoreError(t *testing.T) {
	store, mock := dbtest.NewMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" ORDER BY name ASC`)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.ListProducts(context.Background())
	assert.ErrorIs(t, err, errs.ErrStore)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
