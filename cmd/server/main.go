package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Suhaibinator/SRelease/internal/api"
	"github.com/Suhaibinator/SRelease/internal/auth"
	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/config"
	"github.com/Suhaibinator/SRelease/internal/db"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/Suhaibinator/SRelease/internal/sanitize"
	"github.com/Suhaibinator/SRelease/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	cat, err := catalog.Load(cfg.ProductCatalogPath)
	if err != nil {
		return err
	}

	// Initialize Database (Postgres or SQLite)
	store, err := db.Init(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Seed(ctx, cat, cfg.SeedSampleReleases, logger); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	// Initialize Storage (Minio or Local)
	files, err := storage.InitStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	creds, err := auth.NewStaticCredentials(cfg.AdminUsername, cfg.AdminPassword, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	service := releases.NewService(store, sanitize.New(), logger)

	srv, err := api.NewServer(cfg, service, files, creds, cat, logger)
	if err != nil {
		return err
	}
	router := mux.NewRouter()
	srv.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", httpServer.Addr), zap.String("environment", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newLogger builds a console logger for development and a JSON one otherwise.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
