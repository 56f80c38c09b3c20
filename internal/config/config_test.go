package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, secrets, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Provider.Name != ProviderOpenRouter {
		t.Errorf("default provider = %q, want %q", cfg.Provider.Name, ProviderOpenRouter)
	}
	if cfg.Model.Temperature == nil || *cfg.Model.Temperature != 0.1 {
		t.Errorf("default temperature = %v, want 0.1", cfg.Model.Temperature)
	}
	if cfg.Model.MaxRetries != 3 {
		t.Errorf("default max_retries = %d, want 3", cfg.Model.MaxRetries)
	}
	if cfg.ResolveBaseURL() != DefaultOpenRouterBaseURL {
		t.Errorf("base URL = %q, want %q", cfg.ResolveBaseURL(), DefaultOpenRouterBaseURL)
	}
	if secrets.APIKey != "test-key" {
		t.Errorf("api key = %q, want test-key", secrets.APIKey)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, _, err := Load(writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
debug = true

[provider]
name = "ollama"
base_url = "http://localhost:11434/v1/"

[model]
name = "qwen2.5:7b"
embedding_model = "nomic-embed-text"
temperature = 0.3
rate_limit_per_minute = 120
use_streaming = true
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v, want 127.0.0.1:9000", cfg.Server)
	}
	if cfg.Provider.Name != ProviderOllama {
		t.Errorf("provider = %q, want ollama", cfg.Provider.Name)
	}
	if got := cfg.ResolveBaseURL(); got != "http://localhost:11434/v1" {
		t.Errorf("base URL = %q, trailing slash should be trimmed", got)
	}
	if !cfg.Model.UseStreaming {
		t.Error("use_streaming not loaded")
	}
}

// An explicit temperature of 0 requests deterministic sampling and must not
// be rewritten to the default.
func TestLoad_ExplicitZeroTemperature(t *testing.T) {
	cfg, _, err := Load(writeConfig(t, `
[provider]
name = "ollama"

[model]
temperature = 0.0
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.Temperature == nil || *cfg.Model.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", cfg.Model.Temperature)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.Name == "" {
		t.Error("expected default model name")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3:8b")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434/v1")

	cfg, secrets, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider.Name != ProviderOllama {
		t.Errorf("provider = %q, want ollama", cfg.Provider.Name)
	}
	if cfg.Model.Name != "llama3:8b" {
		t.Errorf("model = %q, want llama3:8b", cfg.Model.Name)
	}
	if cfg.ResolveBaseURL() != "http://ollama.internal:11434/v1" {
		t.Errorf("base URL = %q", cfg.ResolveBaseURL())
	}
	if secrets.APIKey != "" {
		t.Errorf("ollama should not require a key, got %q", secrets.APIKey)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad provider",
			content: "[provider]\nname = \"azure\"\n",
			wantErr: "provider.name",
		},
		{
			name:    "bad port",
			content: "[server]\nport = 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "bad temperature",
			content: "[provider]\nname = \"ollama\"\n[model]\ntemperature = 3.5\n",
			wantErr: "model.temperature",
		},
		{
			name:    "bad base url",
			content: "[provider]\nname = \"ollama\"\nbase_url = \"localhost:11434\"\n",
			wantErr: "provider.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, _, err := Load(writeConfig(t, ""))
	if err == nil {
		t.Fatal("Load() succeeded without OPENROUTER_API_KEY")
	}
	if !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Errorf("error %q does not name the missing variable", err)
	}
}
