package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file and environment variables.
// The config file is optional: when path does not exist, defaults apply and
// only the environment is consulted.
func Load(path string) (*Config, *Secrets, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus environment only
	default:
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	secrets, err := LoadSecrets(cfg.Provider.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	return &cfg, secrets, nil
}

// LoadEnvFile loads a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = ProviderOpenRouter
	}

	if cfg.Model.Name == "" {
		cfg.Model.Name = "openai/gpt-4.1-mini"
	}
	if cfg.Model.EmbeddingModel == "" {
		cfg.Model.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Model.EmbeddingDimension == 0 {
		cfg.Model.EmbeddingDimension = 1536
	}
	if cfg.Model.Temperature == nil {
		temperature := 0.1
		cfg.Model.Temperature = &temperature
	}
	if cfg.Model.MaxRetries == 0 {
		cfg.Model.MaxRetries = 3
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 120
	}
	if cfg.Model.RateLimitPerMinute == 0 {
		cfg.Model.RateLimitPerMinute = 60
	}
}

// applyEnvOverrides applies non-secret environment variables on top of the
// file values, mirroring the settings the service historically honored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Model.EmbeddingModel = v
	}

	if cfg.Provider.BaseURL == "" {
		switch cfg.Provider.Name {
		case ProviderOpenRouter:
			cfg.Provider.BaseURL = os.Getenv("OPENROUTER_BASE_URL")
		case ProviderOllama:
			cfg.Provider.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		case ProviderLiteLLM:
			if v := os.Getenv("LITELLM_URL"); v != "" {
				cfg.Provider.BaseURL = v
			} else {
				cfg.Provider.BaseURL = os.Getenv("LITELLM_BASE_URL")
			}
		}
	}
}

// LoadSecrets reads provider credentials from the environment.
// Ollama runs without a key; the other providers require one.
func LoadSecrets(provider string) (*Secrets, error) {
	secrets := &Secrets{}

	switch provider {
	case ProviderOpenRouter:
		secrets.APIKey = os.Getenv("OPENROUTER_API_KEY")
		if secrets.APIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is required for provider %q", provider)
		}
	case ProviderLiteLLM:
		secrets.APIKey = os.Getenv("LITELLM_API_KEY")
		if secrets.APIKey == "" {
			return nil, fmt.Errorf("LITELLM_API_KEY environment variable is required for provider %q", provider)
		}
	case ProviderOllama:
		// Local endpoint, no credential needed
	}

	return secrets, nil
}
