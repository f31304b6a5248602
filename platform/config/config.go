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

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthConfig provides settings for issuing operator access tokens.
type AuthConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GatewayConfig provides settings for the messaging/voice provider API.
type GatewayConfig interface {
	GetGatewayURL() string
	GetGatewayAPIKey() string
	GetGatewayFromNumber() string
	GetCallbackBaseURL() string
	IsGatewayEnabled() bool
}

// WebhookConfig provides settings for authenticating provider callbacks.
type WebhookConfig interface {
	GetWebhookToken() string
}

// AIConfig provides settings for the reply composer agent.
type AIConfig interface {
	GetMoonshotAPIKey() string
	IsAIEnabled() bool
}

// EngagementConfig provides tunables for the lead engagement pipeline.
type EngagementConfig interface {
	GetReplyDelayMin() time.Duration
	GetReplyDelayMax() time.Duration
	GetReplyContextSize() int
	GetStuckCallThreshold() time.Duration
}

// StorageConfig provides settings for MinIO recording archival.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallRecordings() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Config struct and accessors
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string
	AccessTokenTTL  time.Duration

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	GatewayURL        string
	GatewayAPIKey     string
	GatewayFromNumber string
	CallbackBaseURL   string

	WebhookToken string

	MoonshotAPIKey string

	ReplyDelayMin      time.Duration
	ReplyDelayMax      time.Duration
	ReplyContextSize   int
	StuckCallThreshold time.Duration

	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketCallRecordings string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig / AuthConfig implementation
func (c *Config) GetJWTAccessSecret() string       { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// GatewayConfig implementation
func (c *Config) GetGatewayURL() string        { return c.GatewayURL }
func (c *Config) GetGatewayAPIKey() string     { return c.GatewayAPIKey }
func (c *Config) GetGatewayFromNumber() string { return c.GatewayFromNumber }
func (c *Config) GetCallbackBaseURL() string   { return c.CallbackBaseURL }
func (c *Config) IsGatewayEnabled() bool       { return c.GatewayURL != "" }

// WebhookConfig implementation
func (c *Config) GetWebhookToken() string { return c.WebhookToken }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) IsAIEnabled() bool         { return c.MoonshotAPIKey != "" }

// EngagementConfig implementation
func (c *Config) GetReplyDelayMin() time.Duration      { return c.ReplyDelayMin }
func (c *Config) GetReplyDelayMax() time.Duration      { return c.ReplyDelayMax }
func (c *Config) GetReplyContextSize() int             { return c.ReplyContextSize }
func (c *Config) GetStuckCallThreshold() time.Duration { return c.StuckCallThreshold }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallRecordings() string {
	return c.MinioBucketCallRecordings
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:  mustDuration(getEnv("JWT_ACCESS_TTL", "24h")),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "engagement"),
		AsynqConcurrency: int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),

		GatewayURL:        getEnv("GATEWAY_URL", ""),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		GatewayFromNumber: getEnv("GATEWAY_FROM_NUMBER", ""),
		CallbackBaseURL:   getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),

		WebhookToken: getEnv("WEBHOOK_TOKEN", ""),

		MoonshotAPIKey: getEnv("MOONSHOT_API_KEY", ""),

		ReplyDelayMin:      mustDuration(getEnv("REPLY_DELAY_MIN", "10s")),
		ReplyDelayMax:      mustDuration(getEnv("REPLY_DELAY_MAX", "15s")),
		ReplyContextSize:   int(mustInt64(getEnv("REPLY_CONTEXT_SIZE", "20"))),
		StuckCallThreshold: mustDuration(getEnv("STUCK_CALL_THRESHOLD", "30m")),

		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCallRecordings: getEnv("MINIO_BUCKET_CALL_RECORDINGS", "call-recordings"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ReplyDelayMin <= 0 || cfg.ReplyDelayMax < cfg.ReplyDelayMin {
		return nil, fmt.Errorf("invalid REPLY_DELAY_MIN/REPLY_DELAY_MAX window")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
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
