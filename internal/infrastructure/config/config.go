package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ErrMissingAPIKey is returned by Load when no Gemini credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Persona PersonaConfig
	Logging LogConfig
	Breaker BreakerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// GeminiConfig holds generation backend configuration.
type GeminiConfig struct {
	APIKey     string        `envconfig:"GEMINI_API_KEY"`
	BaseURL    string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/"`
	APIVersion string        `envconfig:"GEMINI_API_VERSION" default:"v1beta"`
	Timeout    time.Duration `envconfig:"GEMINI_TIMEOUT" default:"0s"` // 0 disables the client-side timeout
}

// PersonaConfig points at an optional persona override file.
type PersonaConfig struct {
	File string `envconfig:"PERSONA_FILE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// BreakerConfig holds circuit breaker configuration for stream setup.
type BreakerConfig struct {
	Enabled   bool          `envconfig:"BREAKER_ENABLED" default:"true"`
	Threshold uint32        `envconfig:"BREAKER_THRESHOLD" default:"5"`
	Cooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
// A missing API key is fatal: the process must not start without it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Gemini.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &cfg, nil
}

// Default returns default configuration without a credential.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "3000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Gemini: GeminiConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/",
			APIVersion: "v1beta",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Breaker: BreakerConfig{
			Enabled:   true,
			Threshold: 5,
			Cooldown:  30 * time.Second,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
