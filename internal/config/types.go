package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	App        AppConfig        `yaml:"app" json:"app" validate:"required"`
	Server     ServerConfig     `yaml:"server" json:"server" validate:"required"`
	Database   DatabaseConfig   `yaml:"database" json:"database" validate:"required"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Auth       AuthConfig       `yaml:"auth" json:"auth" validate:"required"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Model      ModelConfig      `yaml:"model" json:"model"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `yaml:"name" json:"name" default:"dygsom-fraud-api" validate:"required"`
	Version     string `yaml:"version" json:"version" default:"1.0.0"`
	Environment string `yaml:"env" json:"env" env:"APP_ENV" default:"development" validate:"required,oneof=development staging production"`
	Debug       bool   `yaml:"debug" json:"debug" env:"DEBUG" default:"false"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" json:"port" env:"PORT" default:"3000" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" default:"5s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout" env:"API_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"API_GRACEFUL_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `yaml:"max_request_size" json:"max_request_size" default:"65536"`
	EnableCORS      bool          `yaml:"enable_cors" json:"enable_cors" default:"true"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins" default:"[\"*\"]"`
}

// DatabaseConfig contains the transaction/api-key store connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url" json:"url" env:"DATABASE_URL" secret:"true" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" default:"5m"`
	MigrationPath   string        `yaml:"migration_path" json:"migration_path" default:"migrations/postgres"`
}

// RedisConfig contains Redis connection settings for the L2 cache and
// the sliding-window rate limiter.
type RedisConfig struct {
	URL          string        `yaml:"url" json:"url" env:"REDIS_URL"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries" default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout" default:"2s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" default:"500ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" default:"500ms"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size" default:"20"`
}

// Enabled reports whether a Redis L2 tier is configured. When unset the
// cache falls back to its in-process L2 and the rate limiter allows
// every request.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig contains settings for the API-key auth gate and the
// out-of-scope admin/JWT flows carried for configuration completeness.
type AuthConfig struct {
	APIKeySalt   string        `yaml:"api_key_salt" json:"api_key_salt" env:"API_KEY_SALT" secret:"true" validate:"required"`
	APIKeyPrefix string        `yaml:"api_key_prefix" json:"api_key_prefix" default:"dygsom_"`
	JWTSecret    string        `yaml:"jwt_secret" json:"jwt_secret" env:"JWT_SECRET" secret:"true"`
	AuthCacheTTL time.Duration `yaml:"auth_cache_ttl" json:"auth_cache_ttl" default:"5s"`
}

// RateLimitConfig holds RATE_LIMIT_PER_MINUTE. The rate limiter enforces
// each API key's own RateLimit column and does not read PerMinute; keys
// minted without an explicit limit get 100 from the api_keys column
// default or from apikeygen's -rate-limit flag default.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" json:"per_minute" env:"RATE_LIMIT_PER_MINUTE" default:"100"`
}

// CacheConfig contains the two-tier velocity/feature cache settings.
type CacheConfig struct {
	L1MaxSize    int           `yaml:"l1_max_size" json:"l1_max_size" env:"CACHE_L1_MAX_SIZE" default:"2000"`
	VelocityTTL  time.Duration `yaml:"velocity_ttl" json:"velocity_ttl" env:"CACHE_VELOCITY_TTL" default:"60s"`
	IPHistoryTTL time.Duration `yaml:"ip_history_ttl" json:"ip_history_ttl" env:"CACHE_IP_HISTORY_TTL" default:"300s"`
}

// ModelConfig locates the scoring model artifact and the thresholds that
// turn a raw fraud score into a risk level.
type ModelConfig struct {
	Path            string        `yaml:"path" json:"path" env:"ML_MODEL_PATH" default:""`
	PredictTimeout  time.Duration `yaml:"predict_timeout" json:"predict_timeout" env:"ML_PREDICTION_TIMEOUT" default:"5s"`
	LowThreshold    float64       `yaml:"low_threshold" json:"low_threshold" env:"FRAUD_SCORE_LOW_THRESHOLD" default:"0.30"`
	MediumThreshold float64       `yaml:"medium_threshold" json:"medium_threshold" env:"FRAUD_SCORE_MEDIUM_THRESHOLD" default:"0.50"`
	HighThreshold   float64       `yaml:"high_threshold" json:"high_threshold" env:"FRAUD_SCORE_HIGH_THRESHOLD" default:"0.80"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error fatal"`
	Format string `yaml:"format" json:"format" default:"json" validate:"oneof=json console"`
}

// MetricsConfig contains metrics and monitoring settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" default:"true"`
	Path      string `yaml:"path" json:"path" default:"/metrics"`
	Namespace string `yaml:"namespace" json:"namespace" default:"dygsom_fraud"`
}

// Validate checks invariants that struct tags alone can't express.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Auth.APIKeySalt == "" {
		return fmt.Errorf("api key salt is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Model.LowThreshold >= c.Model.MediumThreshold || c.Model.MediumThreshold >= c.Model.HighThreshold {
		return fmt.Errorf("fraud score thresholds must be strictly increasing: low < medium < high")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
