package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/jsonsift/jsonsift/internal/config"
)

// Manager creates and caches one Client per API key. Keys are stored only as
// truncated SHA-256 digests. Lifecycle is explicit: CloseAll drains every
// cached client; nothing is cleaned up by finalizers.
type Manager struct {
	baseURL string
	model   config.ModelConfig
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager creates a client manager for one endpoint and model configuration
func NewManager(baseURL string, model config.ModelConfig, logger *slog.Logger) *Manager {
	return &Manager{
		baseURL: baseURL,
		model:   model,
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// keyHash returns the cache key for an API key: the first 16 hex characters
// of its SHA-256 digest.
func keyHash(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached client for apiKey, creating it on first use
func (m *Manager) Get(apiKey string) *Client {
	hash := keyHash(apiKey)

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[hash]; ok {
		return client
	}

	client := NewClient(m.baseURL, apiKey, m.model, m.logger.With("client", hash))
	m.clients[hash] = client

	m.logger.Debug("Created API client", "client", hash, "base_url", m.baseURL)
	return client
}

// Remove closes and drops the client for apiKey, if cached
func (m *Manager) Remove(apiKey string) {
	hash := keyHash(apiKey)

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[hash]; ok {
		client.Close()
		delete(m.clients, hash)
	}
}

// CloseAll closes every cached client and empties the registry
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, client := range m.clients {
		client.Close()
		delete(m.clients, hash)
	}
}

// Len reports how many clients are currently cached
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
