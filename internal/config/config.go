package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database (sessions, access logs, subscriptions)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis tier cache (optional; empty addr disables caching)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
	MinioKeyPrefix string

	// Access control
	RefreshTokenSecret  string
	TokenIssuer         string
	GrantTTL            time.Duration
	SessionCeiling      time.Duration
	RefreshTokenTTL     time.Duration
	MaxRefresh          int
	CollaboratorTimeout time.Duration
	TierCacheTTL        time.Duration
	AnalyticsWindow     time.Duration
	AnalyticsLimit      int

	// Maintenance
	PurgeInterval time.Duration

	// HTTP hardening
	ServiceAPIKey   string
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// RateLimitConfig holds per-endpoint-group rate limiting configuration.
type RateLimitConfig struct {
	Enabled                bool
	RequestPerMinute       int
	RefreshPerMinute       int
	AdminRequestsPerMinute int
	WindowMinutes          int
}

// SecurityHeadersConfig holds security header configuration.
type SecurityHeadersConfig struct {
	Enabled            bool
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// ValidationConfig holds request validation configuration.
type ValidationConfig struct {
	MaxRequestBodySize int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "mediagate"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis (optional)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Object storage defaults
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioBucket:    getEnv("MINIO_BUCKET", "media-assets"),
		MinioKeyPrefix: getEnv("MINIO_KEY_PREFIX", ""),

		// Access control defaults
		RefreshTokenSecret:  getEnv("REFRESH_TOKEN_SECRET", ""),
		TokenIssuer:         getEnv("TOKEN_ISSUER", "mediagate"),
		GrantTTL:            getEnvDuration("GRANT_TTL", 15*time.Minute),
		SessionCeiling:      getEnvDuration("SESSION_CEILING", 24*time.Hour),
		RefreshTokenTTL:     getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
		MaxRefresh:          getEnvInt("MAX_REFRESH", 100),
		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 5*time.Second),
		TierCacheTTL:        getEnvDuration("TIER_CACHE_TTL", 5*time.Minute),
		AnalyticsWindow:     getEnvDuration("ANALYTICS_WINDOW", 30*24*time.Hour),
		AnalyticsLimit:      getEnvInt("ANALYTICS_LIMIT", 5000),

		// Maintenance: 0 disables the in-process sweep
		PurgeInterval: getEnvDuration("PURGE_INTERVAL", 0),

		// HTTP hardening
		ServiceAPIKey: getEnv("SERVICE_API_KEY", ""),
		RateLimit: RateLimitConfig{
			Enabled:                getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestPerMinute:       getEnvInt("RATE_LIMIT_REQUEST_PER_MINUTE", 60),
			RefreshPerMinute:       getEnvInt("RATE_LIMIT_REFRESH_PER_MINUTE", 120),
			AdminRequestsPerMinute: getEnvInt("RATE_LIMIT_ADMIN_PER_MINUTE", 10),
			WindowMinutes:          getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 1),
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
		Validation: ValidationConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 64*1024),
		},
	}

	// Validate required fields
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET is required")
	}
	if len(cfg.RefreshTokenSecret) < 32 {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least 32 characters")
	}
	if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	return cfg, nil
}

// HasRedis returns true if the tier cache is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
