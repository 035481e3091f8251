package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Model      ModelConfig      `mapstructure:"model"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Invoice    InvoiceConfig    `mapstructure:"invoice"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// DatabaseConfig holds sqlite configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ModelConfig holds local LLM endpoint configuration. BaseURL points at an
// OpenAI-compatible surface such as Ollama's /v1.
type ModelConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Name           string        `mapstructure:"name"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	CacheSize      int           `mapstructure:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// ExtractionConfig holds structured extraction parameters
type ExtractionConfig struct {
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// Summarize enables AI-generated descriptions for combined line
	// items; the deterministic fallback always remains in place.
	Summarize bool `mapstructure:"summarize"`
}

// InvoiceConfig holds invoice generation defaults
type InvoiceConfig struct {
	DueInDays      int     `mapstructure:"due_in_days"`
	DefaultTaxRate float64 `mapstructure:"default_tax_rate"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. A missing
// config file is not an error; defaults and environment cover everything.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "data/invoiceagent.db")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Model defaults: local Ollama with its OpenAI-compatible surface
	v.SetDefault("model.base_url", "http://localhost:11434/v1")
	v.SetDefault("model.api_key", "ollama")
	v.SetDefault("model.name", "llama3.2:latest")
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("model.max_retries", 3)
	v.SetDefault("model.initial_backoff", 500*time.Millisecond)
	v.SetDefault("model.cache_size", 128)
	v.SetDefault("model.cache_ttl", time.Hour)

	// Extraction defaults
	v.SetDefault("extraction.temperature", 0.1)
	v.SetDefault("extraction.max_tokens", 1000)
	v.SetDefault("extraction.summarize", false)

	// Invoice defaults
	v.SetDefault("invoice.due_in_days", 30)
	v.SetDefault("invoice.default_tax_rate", 0.0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "INVOICEAGENT_DB_PATH")
	v.BindEnv("model.base_url", "INVOICEAGENT_MODEL_URL")
	v.BindEnv("model.name", "INVOICEAGENT_MODEL_NAME")
	v.BindEnv("logger.level", "INVOICEAGENT_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries must not be negative")
	}
	if c.Invoice.DueInDays <= 0 {
		return fmt.Errorf("invoice.due_in_days must be positive")
	}
	if c.Invoice.DefaultTaxRate < 0 {
		return fmt.Errorf("invoice.default_tax_rate must not be negative")
	}
	return nil
}
