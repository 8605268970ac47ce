package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the generation service.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Redis configuration (job store and status channels)
	Redis RedisConfig `yaml:"redis"`

	// LLM provider endpoints
	OpenAI ProviderConfig `yaml:"openai"`
	Ollama ProviderConfig `yaml:"ollama"`

	// Jobs configuration
	Jobs JobsConfig `yaml:"jobs"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProviderConfig holds one LLM provider's endpoint settings.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url" env-default:""`
	Model   string `yaml:"model" env-default:""`
	APIKey  string `yaml:"-"` // Secret - not in YAML
}

// Configured returns true if the provider has an endpoint and model set.
func (p *ProviderConfig) Configured() bool {
	return p.BaseURL != "" && p.Model != ""
}

// JobsConfig holds job execution settings.
type JobsConfig struct {
	// MaxConcurrent caps how many generation jobs run at once. Zero or
	// negative means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" env:"JOBS_MAX_CONCURRENT" env-default:"4"`
	// SyncRowLimit is the largest request the synchronous endpoint accepts.
	SyncRowLimit int `yaml:"sync_row_limit" env:"JOBS_SYNC_ROW_LIMIT" env-default:"1000"`
	// ShutdownGraceSeconds is how long shutdown waits for running jobs.
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds" env:"JOBS_SHUTDOWN_GRACE_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	applyProviderEnv(cfg)

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// applyProviderEnv overlays provider settings from environment variables.
// cleanenv cannot tag the two ProviderConfig instances with distinct env
// names, so the overlay is explicit.
func applyProviderEnv(cfg *Config) {
	overlay := func(p *ProviderConfig, prefix string) {
		if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
			p.BaseURL = v
		}
		if v := os.Getenv(prefix + "_MODEL"); v != "" {
			p.Model = v
		}
		if v := os.Getenv(prefix + "_API_KEY"); v != "" {
			p.APIKey = v
		}
	}
	overlay(&cfg.OpenAI, "OPENAI")
	overlay(&cfg.Ollama, "OLLAMA")
}
