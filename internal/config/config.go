package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOllamaBaseURL = "http://localhost:11434"

	// timeoutHeadroom is added on top of the scoring budget for the work
	// around the provider calls (storage, encoding, slow clients).
	timeoutHeadroom = 30 * time.Second
)

type Config struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
	// APITimeout bounds reading and writing a whole request. Left unset it
	// is derived from the scoring retry budget.
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`
	LogLevel      string        `yaml:"log_level"`
	Scoring       ScoringConfig `yaml:"scoring"`
	Redis         RedisConfig   `yaml:"redis"`
}

// ScoringConfig selects and configures the external scoring capability.
type ScoringConfig struct {
	// Provider is either "gemini" or "ollama".
	Provider    string      `yaml:"provider"`
	BaseURL     string      `yaml:"base_url"`
	Model       string      `yaml:"model"`
	APIKey      string      `yaml:"api_key"`
	Temperature float64     `yaml:"temperature"`
	Retry       RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	FixedDelay        time.Duration `yaml:"fixed_delay"`
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout"`
}

// Budget is the longest time a single scoring call may take when every
// attempt runs into its timeout.
func (r RetryConfig) Budget() time.Duration {
	if r.MaxAttempts <= 0 {
		return 0
	}
	n := time.Duration(r.MaxAttempts)
	return n*r.PerAttemptTimeout + (n-1)*r.FixedDelay
}

// RedisConfig enables the statistics cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          ":8080",
		JWTSecret:     insecureJWTSecret,
		DatabasePath:  "wellbeing.db",
		TokenDuration: 1 * time.Hour,
		LogLevel:      "info",
		Scoring: ScoringConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.5,
			Retry: RetryConfig{
				MaxAttempts:       3,
				FixedDelay:        1 * time.Second,
				PerAttemptTimeout: 120 * time.Second,
			},
		},
		Redis: RedisConfig{TTL: 5 * time.Minute},
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// environment wins over the file
	cfg.Addr = getEnv("WELLBEING_ADDR", cfg.Addr)
	cfg.JWTSecret = getEnv("WELLBEING_JWT_SECRET", cfg.JWTSecret)
	cfg.DatabasePath = getEnv("WELLBEING_DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("WELLBEING_LOG_LEVEL", cfg.LogLevel)
	cfg.Redis.Addr = getEnv("WELLBEING_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Scoring.APIKey = getEnv("GOOGLE_API_KEY", cfg.Scoring.APIKey)

	if cfg.Scoring.BaseURL == "" {
		cfg.Scoring.BaseURL = DefaultGeminiBaseURL
		if cfg.Scoring.Provider == "ollama" {
			cfg.Scoring.BaseURL = DefaultOllamaBaseURL
		}
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = cfg.Scoring.Retry.Budget() + timeoutHeadroom
	}

	return cfg, nil
}

// Validate checks settings that would make the server unsafe or unusable.
// The scoring API key is deliberately not required here: a missing key is
// reported per request as a scoring failure.
func (c *Config) Validate() error {
	env := strings.ToLower(os.Getenv("WELLBEING_ENV"))
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && env != "development" {
		return fmt.Errorf("insecure default jwt_secret; set WELLBEING_JWT_SECRET or WELLBEING_ENV=development")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token_duration must be positive")
	}

	switch c.Scoring.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown scoring provider %q", c.Scoring.Provider)
	}
	if c.Scoring.Model == "" {
		return fmt.Errorf("scoring.model is required")
	}
	if c.Scoring.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("scoring.retry.max_attempts must be positive")
	}
	if c.Scoring.Retry.PerAttemptTimeout <= 0 {
		return fmt.Errorf("scoring.retry.per_attempt_timeout must be positive")
	}
	if c.Scoring.Retry.FixedDelay < 0 {
		return fmt.Errorf("scoring.retry.fixed_delay must not be negative")
	}
	// a request that outlives the server write deadline loses its response
	if budget := c.Scoring.Retry.Budget(); c.APITimeout <= budget {
		return fmt.Errorf("timeout %s must exceed the scoring retry budget %s", c.APITimeout, budget)
	}

	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
