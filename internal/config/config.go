package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"fermload/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	// Pipeline is set when FERMLOAD_PIPELINE_FILE names a YAML run description
	Pipeline *PipelineFile
}

// DatabaseConfig holds the optional run store settings. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL    string
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// Enabled reports whether a store is configured
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir   string
	OutputDir string
}

// LoggingConfig mirrors LOG_LEVEL / LOG_MODE
type LoggingConfig struct {
	Level string
	Mode  string
}

// MetricsConfig toggles the prometheus registry
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from a .env file (when present) and the
// environment, then validates it
func Load() (*Config, error) {
	// a missing .env is fine; variables may come from the environment
	_ = godotenv.Load()

	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.Server = *loadServerConfig()
	config.Paths = *loadPathConfig()
	config.Logging = LoggingConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		Mode:  getEnvOrDefault("LOG_MODE", "dev"),
	}
	config.Metrics = MetricsConfig{Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true)}

	if path := os.Getenv("FERMLOAD_PIPELINE_FILE"); path != "" {
		pf, err := LoadPipelineFile(path)
		if err != nil {
			return nil, err
		}
		config.Pipeline = pf
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return &DatabaseConfig{}, nil
	}
	driver, dsn, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}
	return &DatabaseConfig{URL: url, Driver: driver, DSN: dsn}, nil
}

// ParseDatabaseURL maps sqlite://<path> and postgres://... URLs to a
// database/sql driver name and DSN
func ParseDatabaseURL(url string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", errors.ConfigInvalid("sqlite DATABASE_URL needs a path")
		}
		return "sqlite", path, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url, nil
	default:
		return "", "", errors.ConfigInvalid("DATABASE_URL must start with sqlite:// or postgres://")
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataDir:   getEnvOrDefault("FERMLOAD_DATA_DIR", "./data"),
		OutputDir: getEnvOrDefault("FERMLOAD_OUTPUT_DIR", "./output"),
	}
}

func validateConfig(config *Config) error {
	if config.Paths.OutputDir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid("PORT must be numeric")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
