// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported document store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides PostgreSQL connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// MongoConfig provides MongoDB connection settings.
type MongoConfig interface {
	GetMongoURI() string
	GetMongoDatabase() string
}

// StoreConfig selects and configures the document store backend.
type StoreConfig interface {
	DatabaseConfig
	MongoConfig
	GetDocumentStore() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides settings for the shared Redis instance.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq worker and scheduler.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSearchableFieldsRefresh() time.Duration
}

// EntityConfig provides settings for entity configuration and search.
type EntityConfig interface {
	GetEntityConfigDir() string
	GetSearchResultLimit() int
	GetSearchableFieldsTTL() time.Duration
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DocumentStore           string
	MongoURI                string
	MongoDatabase           string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	EntityConfigDir         string
	SearchResultLimit       int
	SearchableFieldsTTL     time.Duration
	SearchableFieldsRefresh time.Duration
	PhoneDefaultRegion      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// StoreConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetMongoURI() string      { return c.MongoURI }
func (c *Config) GetMongoDatabase() string { return c.MongoDatabase }
func (c *Config) GetDocumentStore() string { return c.DocumentStore }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                 { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                 { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                  { return c.AsynqConcurrency }
func (c *Config) GetSearchableFieldsRefresh() time.Duration { return c.SearchableFieldsRefresh }

// EntityConfig implementation
func (c *Config) GetEntityConfigDir() string            { return c.EntityConfigDir }
func (c *Config) GetSearchResultLimit() int             { return c.SearchResultLimit }
func (c *Config) GetSearchableFieldsTTL() time.Duration { return c.SearchableFieldsTTL }
func (c *Config) GetPhoneDefaultRegion() string         { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DocumentStore:           strings.ToLower(getEnv("DOCUMENT_STORE", StoreMongo)),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "crm"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		EntityConfigDir:         getEnv("ENTITY_CONFIG_DIR", ""),
		SearchResultLimit:       mustInt(getEnv("SEARCH_RESULT_LIMIT", "10")),
		SearchableFieldsTTL:     mustDuration(getEnv("SEARCHABLE_FIELDS_TTL", "1h")),
		SearchableFieldsRefresh: mustDuration(getEnv("SEARCHABLE_FIELDS_REFRESH", "15m")),
		PhoneDefaultRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "NL")),
	}

	switch cfg.DocumentStore {
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when DOCUMENT_STORE is %s", StoreMongo)
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DOCUMENT_STORE is %s", StorePostgres)
		}
	case StoreMemory:
		if strings.EqualFold(cfg.Env, "production") {
			return nil, fmt.Errorf("DOCUMENT_STORE=%s is not allowed in production", StoreMemory)
		}
	default:
		return nil, fmt.Errorf("unsupported DOCUMENT_STORE %q", cfg.DocumentStore)
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SearchResultLimit < 1 {
		cfg.SearchResultLimit = 10
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
