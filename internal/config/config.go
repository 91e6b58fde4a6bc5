package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`     // text or json
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Import     ImportConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"60s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// ImportConfig controls the import pipeline.
type ImportConfig struct {
	MappingFile string `envconfig:"IMPORT_MAPPING_FILE" default:"configs/products.yaml"`
	// Languages are consulted in order by parent lookups; the first one wins.
	Languages    []string `envconfig:"IMPORT_LANGUAGES" default:"en"`
	CachedLoader bool     `envconfig:"IMPORT_CACHED_LOADER" default:"true"`
	MaxRows      int      `envconfig:"IMPORT_MAX_ROWS" default:"5000"`
	// MaxBodyBytes caps the request body before it is decoded.
	MaxBodyBytes int64 `envconfig:"IMPORT_MAX_BODY_BYTES" default:"33554432"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

var cfg Config

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var loaded Config
	if err := envconfig.Process("", &loaded); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := loaded.validate(); err != nil {
		return nil, err
	}
	cfg = loaded

	slog.Info("configuration loaded", "app_env", cfg.AppEnv, "languages", strings.Join(cfg.Import.Languages, ","))
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: expected text or json", c.LogFormat)
	}
	if len(c.Import.Languages) == 0 {
		return fmt.Errorf("IMPORT_LANGUAGES must name at least one language")
	}
	for i, lang := range c.Import.Languages {
		c.Import.Languages[i] = strings.TrimSpace(lang)
		if c.Import.Languages[i] == "" {
			return fmt.Errorf("IMPORT_LANGUAGES contains an empty language")
		}
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("invalid IMPORT_MAX_ROWS %d: must be positive", c.Import.MaxRows)
	}
	if c.Import.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid IMPORT_MAX_BODY_BYTES %d: must be positive", c.Import.MaxBodyBytes)
	}
	return nil
}

// Get returns the loaded configuration.
// Panics if Load() has not been called successfully.
func Get() *Config {
	if cfg.Postgres.Host == "" {
		panic("config: configuration has not been loaded, call config.Load() first")
	}
	return &cfg
}
