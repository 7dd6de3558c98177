package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application (server and potentially CLI).
type Config struct {
	// Server specific configuration
	ServerPort  string `mapstructure:"SERVER_PORT"`
	Environment string `mapstructure:"ENVIRONMENT"` // "development" or "production"
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Database configuration
	DbType             string `mapstructure:"DB_TYPE"`     // "postgres" or "sqlite"
	DbDsn              string `mapstructure:"DB_DSN"`      // Data Source Name for Postgres
	SqlitePath         string `mapstructure:"SQLITE_PATH"` // Path for SQLite database file
	SeedSampleReleases bool   `mapstructure:"SEED_SAMPLE_RELEASES"`
	ProductCatalogPath string `mapstructure:"PRODUCT_CATALOG_PATH"` // Optional YAML override of the built-in catalog

	// Storage configuration (uploaded images)
	StorageType      string `mapstructure:"STORAGE_TYPE"`       // "minio" or "local"
	LocalStoragePath string `mapstructure:"LOCAL_STORAGE_PATH"` // Path for local file storage
	UploadMaxBytes   int64  `mapstructure:"UPLOAD_MAX_BYTES"`

	// MinIO specific configuration (only used if StorageType is "minio")
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Session, CSRF and admin credentials
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	CsrfKey       string `mapstructure:"CSRF_KEY"`
	// Hosts allowed as Origin/Referer on unsafe requests besides the request host,
	// e.g. when TLS terminates at a proxy under another name. Comma separated.
	CsrfTrustedOrigins []string `mapstructure:"CSRF_TRUSTED_ORIGINS"`
	CookieSecure  bool   `mapstructure:"COOKIE_SECURE"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	// Rate limiting for admin writes and login attempts
	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	LoginRateLimit    int           `mapstructure:"LOGIN_RATE_LIMIT"`

	// CLI specific configuration (can also be loaded by CLI)
	ServerURL string `mapstructure:"SERVER_URL"` // URL for the CLI to connect to
}

// IsProduction reports whether error details should be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoadConfig loads configuration from environment variables and sets defaults.
func LoadConfig() (config Config, err error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_TYPE", "sqlite") // The original deployment ran on a single SQLite file
	v.SetDefault("DB_DSN", "host=localhost user=postgres password=postgres dbname=releases_db port=5432 sslmode=disable")
	v.SetDefault("SQLITE_PATH", "releases.db")
	v.SetDefault("SEED_SAMPLE_RELEASES", true)
	v.SetDefault("PRODUCT_CATALOG_PATH", "")
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "./uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20) // 5 MB
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "release-notes-uploads")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("SESSION_SECRET", "change-me-session-secret") // CHANGE THIS IN PRODUCTION
	v.SetDefault("CSRF_KEY", "change-me-csrf-key")             // CHANGE THIS IN PRODUCTION
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CSRF_TRUSTED_ORIGINS", []string{})
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "secret123") // CHANGE THIS IN PRODUCTION
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("SERVER_URL", "http://localhost:3000")

	// Tell viper to look for environment variables with a specific prefix
	v.SetEnvPrefix("SRELEASE") // e.g., SRELEASE_SERVER_PORT, SRELEASE_DB_DSN
	v.AutomaticEnv()           // Read in environment variables that match

	// Unmarshal the configuration into the struct
	err = v.Unmarshal(&config)
	return
}
