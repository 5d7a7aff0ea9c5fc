package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the MemoryCare backend.
// Environment variables are parsed from the MEMORYCARE_ prefix.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8000"`

	// Relational store: sqlite or postgres
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/memorycare.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Memory service (MemMachine-compatible)
	MemoryServiceURL string `envconfig:"MEMORY_SERVICE_URL" default:"http://localhost:8080"`

	// Completion API (OpenAI-compatible)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:""`
	FallbackModel string `envconfig:"FALLBACK_MODEL" default:"qwen-max"`

	// Doctor account (single fixed login)
	DoctorUsername string `envconfig:"DOCTOR_USERNAME" default:"doctor"`
	DoctorPassword string `envconfig:"DOCTOR_PASSWORD" default:"doctor"`

	// Chat retrieval limits
	EpisodicTopK  int `envconfig:"EPISODIC_TOP_K" default:"12"`
	EpisodicRetry int `envconfig:"EPISODIC_RETRY_TOP_K" default:"20"`

	// Health monitor interval, seconds
	HealthIntervalSeconds int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
}

// Models returns the ordered completion-model fallback chain. Empty names
// are dropped; the preferred model, when configured, is tried first.
func (c *Config) Models() []string {
	var out []string
	for _, m := range []string{c.OpenAIModel, c.FallbackModel} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// ResolveDefaults validates the selected DB driver and its settings.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("MEMORYCARE_SQLITE_PATH required for sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("MEMORYCARE_POSTGRES_DSN required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: MEMORYCARE_HTTP_PORT, MEMORYCARE_MEMORY_SERVICE_URL.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("MEMORYCARE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
