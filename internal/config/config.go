package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Search index configuration
	Index IndexConfig

	// Publishing configuration
	Publish PublishConfig

	// Auth configuration
	Auth AuthConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// IndexConfig holds full-text search index settings
type IndexConfig struct {
	// Path is the SQLite file backing the FTS index; ":memory:" is allowed
	Path string
	// RebuildOnStart repopulates the index from the relational store at boot
	RebuildOnStart bool
}

// PublishConfig holds article publishing settings
type PublishConfig struct {
	// MaxTagsPerArticle caps the tag set size of a single article
	MaxTagsPerArticle int
	// Workers bounds concurrent deferred-publish firings
	Workers int
	// RecoverySweep re-registers SCHEDULED articles at startup
	RecoverySweep bool
}

// AuthConfig holds the static API token for the authenticated surface
type AuthConfig struct {
	Token string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "content_lifecycle"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Index: IndexConfig{
			Path:           getEnv("INDEX_PATH", "./data/search.db"),
			RebuildOnStart: getBoolEnv("INDEX_REBUILD_ON_START", false),
		},
		Publish: PublishConfig{
			MaxTagsPerArticle: getIntEnv("PUBLISH_MAX_TAGS", 10),
			Workers:           getIntEnv("PUBLISH_WORKERS", 4),
			RecoverySweep:     getBoolEnv("PUBLISH_RECOVERY_SWEEP", true),
		},
		Auth: AuthConfig{
			Token: getEnv("API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Index.Path == "" {
		return fmt.Errorf("INDEX_PATH is required")
	}
	if c.Publish.MaxTagsPerArticle < 1 {
		return fmt.Errorf("PUBLISH_MAX_TAGS must be at least 1")
	}
	if c.Publish.Workers < 1 {
		return fmt.Errorf("PUBLISH_WORKERS must be at least 1")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
