package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Collaborator CollaboratorConfig `json:"collaborator"`
	Cache        CacheConfig        `json:"cache"`
	Tracing      TracingConfig      `json:"tracing"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	Security     SecurityConfig     `json:"security"`
	Sync         SyncConfig         `json:"sync"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// CollaboratorConfig holds the AI service connection settings.
type CollaboratorConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CacheConfig selects and configures the response cache backend.
type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	Backend       string `json:"backend"` // "memory" or "redis"
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"` // Jaeger collector endpoint
	Environment string `json:"environment"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// SecurityConfig holds request-surface limits.
type SecurityConfig struct {
	// Max request body size in bytes; screenshots arrive base64-encoded.
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated).
	AllowedOrigins string `json:"allowed_origins"`
}

// SyncConfig controls offer synchronization behaviour.
type SyncConfig struct {
	AutoSyncOnStart bool `json:"auto_sync_on_start"`
}

// LoadConfig loads configuration from environment variables and/or a JSON
// config file. Environment variables take precedence over file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", ""),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Collaborator: CollaboratorConfig{
			BaseURL:        getEnv("GEMINI_BASE_URL", ""),
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", ""),
			TimeoutSeconds: getEnvInt("GEMINI_TIMEOUT_SECONDS", 30),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", true),
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			RedisAddr:     getEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
			TTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 600),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Security: SecurityConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 10<<20), // 10MB default
			AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		},
		Sync: SyncConfig{
			AutoSyncOnStart: getEnvBool("AUTO_SYNC_ON_START", true),
		},
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		// Environment variables take precedence over the file.
		overrideFromEnv(cfg)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if base := os.Getenv("GEMINI_BASE_URL"); base != "" {
		cfg.Collaborator.BaseURL = base
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Collaborator.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Collaborator.Model = model
	}
	if timeout := os.Getenv("GEMINI_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			cfg.Collaborator.TimeoutSeconds = t
		}
	}
	if enabled := os.Getenv("CACHE_ENABLED"); enabled != "" {
		cfg.Cache.Enabled = isTrue(enabled)
	}
	if backend := os.Getenv("CACHE_BACKEND"); backend != "" {
		cfg.Cache.Backend = backend
	}
	if addr := os.Getenv("CACHE_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if pass := os.Getenv("CACHE_REDIS_PASSWORD"); pass != "" {
		cfg.Cache.RedisPassword = pass
	}
	if db := os.Getenv("CACHE_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			cfg.Cache.RedisDB = d
		}
	}
	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			cfg.Cache.TTLSeconds = t
		}
	}
	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		cfg.Tracing.Enabled = isTrue(enabled)
	}
	if endpoint := os.Getenv("TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if env := os.Getenv("TRACING_ENVIRONMENT"); env != "" {
		cfg.Tracing.Environment = env
	}
	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		cfg.RateLimit.Enabled = isTrue(enabled)
	}
	if rate := os.Getenv("RATE_LIMIT_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.RateLimit.Rate = r
		}
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.RateLimit.Window = w
		}
	}
	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Security.AllowedOrigins = origins
	}
	if auto := os.Getenv("AUTO_SYNC_ON_START"); auto != "" {
		cfg.Sync.AutoSyncOnStart = isTrue(auto)
	}
}

func isTrue(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return isTrue(value)
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvInt64 gets an int64 environment variable or returns the default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Collaborator.TimeoutSeconds <= 0 {
		return fmt.Errorf("collaborator timeout must be positive")
	}
	if c.Cache.Enabled {
		if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
			return fmt.Errorf("cache backend must be 'memory' or 'redis'")
		}
		if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis cache backend")
		}
		if c.Cache.TTLSeconds <= 0 {
			return fmt.Errorf("cache ttl must be positive")
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	return nil
}
