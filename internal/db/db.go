package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/Suhaibinator/SRelease/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the database connection and runs migrations based on config.
func Init(cfg config.Config, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector // Use interface for flexibility
	dbType := strings.ToLower(cfg.DbType)
	log.Info("Initializing database connection", zap.String("type", dbType))

	switch dbType {
	case "postgres":
		if cfg.DbDsn == "" {
			return nil, fmt.Errorf("DB_DSN must be set for postgres database type")
		}
		dialector = postgres.Open(cfg.DbDsn)
		// Avoid logging potentially sensitive DSN in production logs
		log.Info("Using PostgreSQL DSN (details omitted for security)")
	case "sqlite":
		if cfg.SqlitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH must be set for sqlite database type")
		}
		dialector = sqlite.Open(sqliteDSN(cfg.SqlitePath))
		log.Info("Using SQLite database file", zap.String("path", cfg.SqlitePath))
	default:
		return nil, fmt.Errorf("invalid DB_TYPE: %s. Must be 'postgres' or 'sqlite'", cfg.DbType)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg, log),
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		log.Error("Failed to connect to database", zap.String("type", dbType), zap.Error(err))
		return nil, fmt.Errorf("failed to connect database (%s): %w", dbType, err)
	}
	log.Info("Database connection established", zap.String("type", dbType))

	store := NewStore(gormDB)

	log.Info("Running database migrations...")
	if err := store.Migrate(); err != nil {
		log.Error("Failed to migrate database", zap.String("type", dbType), zap.Error(err))
		return nil, fmt.Errorf("failed to migrate database (%s): %w", dbType, err)
	}
	log.Info("Database migrations completed.")

	return store, nil
}

// sqliteDSN turns on foreign key enforcement for every pooled connection.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// newGormLogger routes GORM's SQL logging through zap.
func newGormLogger(cfg config.Config, log *zap.Logger) logger.Interface {
	level := logger.Warn
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = logger.Info // Log SQL queries
	}
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
