package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// useYAMLTags makes viper.Unmarshal match config keys against the
// structs' yaml tags (e.g. "api_key_salt"), which are the key names
// used by setDefaults and bindEnvironmentVariables.
func useYAMLTags(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
}

// Loader handles configuration loading from environment variables, an
// optional config file and defaults, using Viper.
type Loader struct {
	viper       *viper.Viper
	config      *Config
	configPath  string
	environment string
}

// NewLoader creates a new configuration loader with Viper.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Loader{
		viper:       v,
		config:      &Config{},
		environment: getEnvOrDefault("APP_ENV", "development"),
	}
}

// Load loads configuration from all sources with priority:
// 1. Environment variables (highest)
// 2. Environment-specific config file (config.production.yaml)
// 3. Base config file (config.yaml)
// 4. Default values (lowest)
func (l *Loader) Load(configPath string) (*Config, error) {
	l.configPath = configPath

	l.setDefaults()

	if configPath != "" {
		if err := l.loadFromFile(configPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading environment config: %w", err)
		}
	}

	l.bindEnvironmentVariables()

	if err := l.viper.Unmarshal(l.config, useYAMLTags); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := l.config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return l.config, nil
}

func (l *Loader) loadFromFile(path string) error {
	l.viper.SetConfigFile(path)
	return l.viper.ReadInConfig()
}

func (l *Loader) loadEnvironmentConfig() error {
	if l.configPath == "" {
		return nil
	}

	dir := filepath.Dir(l.configPath)
	base := filepath.Base(l.configPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	envPath := filepath.Join(dir, fmt.Sprintf("%s.%s%s", name, l.environment, ext))
	if _, err := os.Stat(envPath); err != nil {
		return err
	}

	l.viper.SetConfigFile(envPath)
	return l.viper.MergeInConfig()
}

// bindEnvironmentVariables binds each supported environment variable
// name to its config key. The env struct tags in types.go document these
// names; they are not read by the loader.
func (l *Loader) bindEnvironmentVariables() {
	l.viper.BindEnv("app.env", "APP_ENV")
	l.viper.BindEnv("app.debug", "DEBUG")

	l.viper.BindEnv("server.host", "SERVER_HOST")
	l.viper.BindEnv("server.port", "PORT")

	l.viper.BindEnv("database.url", "DATABASE_URL")
	l.viper.BindEnv("redis.url", "REDIS_URL")

	l.viper.BindEnv("auth.api_key_salt", "API_KEY_SALT")
	l.viper.BindEnv("auth.jwt_secret", "JWT_SECRET")

	l.viper.BindEnv("rate_limit.per_minute", "RATE_LIMIT_PER_MINUTE")

	l.viper.BindEnv("cache.l1_max_size", "CACHE_L1_MAX_SIZE")
	l.viper.BindEnv("cache.velocity_ttl", "CACHE_VELOCITY_TTL")
	l.viper.BindEnv("cache.ip_history_ttl", "CACHE_IP_HISTORY_TTL")

	l.viper.BindEnv("model.path", "ML_MODEL_PATH")
	l.viper.BindEnv("model.predict_timeout", "ML_PREDICTION_TIMEOUT")
	l.viper.BindEnv("model.low_threshold", "FRAUD_SCORE_LOW_THRESHOLD")
	l.viper.BindEnv("model.medium_threshold", "FRAUD_SCORE_MEDIUM_THRESHOLD")
	l.viper.BindEnv("model.high_threshold", "FRAUD_SCORE_HIGH_THRESHOLD")

	l.viper.BindEnv("logging.level", "LOG_LEVEL")

	l.viper.BindEnv("server.request_timeout", "API_REQUEST_TIMEOUT")
	l.viper.BindEnv("server.shutdown_timeout", "API_GRACEFUL_SHUTDOWN_TIMEOUT")
}

// setDefaults sets default values for all configuration fields.
func (l *Loader) setDefaults() {
	l.viper.SetDefault("app.name", "dygsom-fraud-api")
	l.viper.SetDefault("app.version", "1.0.0")
	l.viper.SetDefault("app.env", "development")
	l.viper.SetDefault("app.debug", false)

	l.viper.SetDefault("server.host", "0.0.0.0")
	l.viper.SetDefault("server.port", 3000)
	l.viper.SetDefault("server.read_timeout", "5s")
	l.viper.SetDefault("server.write_timeout", "5s")
	l.viper.SetDefault("server.idle_timeout", "60s")
	l.viper.SetDefault("server.request_timeout", "30s")
	l.viper.SetDefault("server.shutdown_timeout", "30s")
	l.viper.SetDefault("server.max_request_size", 65536)
	l.viper.SetDefault("server.enable_cors", true)
	l.viper.SetDefault("server.allowed_origins", []string{"*"})

	l.viper.SetDefault("database.max_open_conns", 25)
	l.viper.SetDefault("database.max_idle_conns", 25)
	l.viper.SetDefault("database.conn_max_lifetime", "5m")
	l.viper.SetDefault("database.conn_max_idle_time", "5m")
	l.viper.SetDefault("database.migration_path", "migrations/postgres")

	l.viper.SetDefault("redis.max_retries", 3)
	l.viper.SetDefault("redis.dial_timeout", "2s")
	l.viper.SetDefault("redis.read_timeout", "500ms")
	l.viper.SetDefault("redis.write_timeout", "500ms")
	l.viper.SetDefault("redis.pool_size", 20)

	l.viper.SetDefault("auth.api_key_prefix", "dygsom_")
	l.viper.SetDefault("auth.auth_cache_ttl", "5s")

	l.viper.SetDefault("rate_limit.per_minute", 100)

	l.viper.SetDefault("cache.l1_max_size", 2000)
	l.viper.SetDefault("cache.velocity_ttl", "60s")
	l.viper.SetDefault("cache.ip_history_ttl", "300s")

	l.viper.SetDefault("model.predict_timeout", "5s")
	l.viper.SetDefault("model.low_threshold", 0.30)
	l.viper.SetDefault("model.medium_threshold", 0.50)
	l.viper.SetDefault("model.high_threshold", 0.80)

	l.viper.SetDefault("logging.level", "info")
	l.viper.SetDefault("logging.format", "json")

	l.viper.SetDefault("metrics.enabled", true)
	l.viper.SetDefault("metrics.path", "/metrics")
	l.viper.SetDefault("metrics.namespace", "dygsom_fraud")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MustLoad loads configuration and panics on error. Used at boot, where
// an invalid configuration should fail fast.
func MustLoad(configPath string) *Config {
	loader := NewLoader()
	config, err := loader.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return config
}

// LoadWithDefaults loads configuration with defaults only, skipping the
// required-field validation. Used by tests that build their own Config.
func LoadWithDefaults() *Config {
	loader := NewLoader()
	loader.setDefaults()
	loader.viper.Unmarshal(loader.config, useYAMLTags)
	return loader.config
}
