package config

import (
	"fmt"
	"strings"
)

// Provider names accepted in provider.name
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderLiteLLM    = "litellm"
)

// Default base URLs per provider
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOllamaBaseURL     = "http://localhost:11434/v1"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Provider ProviderConfig `toml:"provider"`
	Model    ModelConfig    `toml:"model"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Debug bool   `toml:"debug"`
}

// ProviderConfig selects the model provider and its endpoint
type ProviderConfig struct {
	Name    string `toml:"name"`     // "openrouter", "ollama" or "litellm"
	BaseURL string `toml:"base_url"` // optional, defaults per provider
}

// ModelConfig holds model and request tuning settings
type ModelConfig struct {
	Name               string `toml:"name"`
	EmbeddingModel     string `toml:"embedding_model"`
	EmbeddingDimension int    `toml:"embedding_dimension"`
	// Temperature is a pointer so an explicit 0.0 in the config file is
	// distinguishable from the field being absent.
	Temperature        *float64 `toml:"temperature"`
	MaxOutputTokens    int      `toml:"max_output_tokens"`
	MaxRetries         int      `toml:"max_retries"`
	UseStreaming       bool     `toml:"use_streaming"`
	UseJSONMode        bool     `toml:"use_json_mode"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// Secrets holds credentials loaded from environment variables only,
// never from the config file.
type Secrets struct {
	APIKey string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}

	switch c.Provider.Name {
	case ProviderOpenRouter, ProviderOllama, ProviderLiteLLM:
	default:
		return fmt.Errorf("provider.name must be one of: openrouter, ollama, litellm (got %q)", c.Provider.Name)
	}

	if c.Provider.BaseURL != "" && !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("provider.base_url must start with http:// or https:// (got %q)", c.Provider.BaseURL)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if t := c.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("model.temperature must be between 0 and 2 (got %g)", *t)
	}
	if c.Model.RateLimitPerMinute < 1 {
		return fmt.Errorf("model.rate_limit_per_minute must be at least 1 (got %d)", c.Model.RateLimitPerMinute)
	}
	if c.Model.EmbeddingDimension < 1 {
		return fmt.Errorf("model.embedding_dimension must be at least 1 (got %d)", c.Model.EmbeddingDimension)
	}

	return nil
}

// ResolveBaseURL returns the configured base URL or the provider default
func (c *Config) ResolveBaseURL() string {
	if c.Provider.BaseURL != "" {
		return strings.TrimRight(c.Provider.BaseURL, "/")
	}
	switch c.Provider.Name {
	case ProviderOllama:
		return DefaultOllamaBaseURL
	default:
		return DefaultOpenRouterBaseURL
	}
}
