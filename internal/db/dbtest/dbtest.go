// Package dbtest builds stores for package tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewStore returns a migrated store over a private in-memory SQLite database
// holding the default catalog products. With samples the demo releases are
// seeded as well.
func NewStore(t *testing.T, samples bool) *db.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:srelease_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open sqlite test database")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := db.NewStore(gormDB)
	require.NoError(t, store.Migrate(), "Failed to migrate test database")
	require.NoError(t, store.Seed(context.Background(), catalog.Default(), samples, zap.NewNop()))
	return store
}

// NewMockStore returns a store backed by sqlmock speaking the PostgreSQL dialect.
func NewMockStore(t *testing.T) (*db.Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { mockDb.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open gorm DB with mock")

	return db.NewStore(gormDB), mock
}
