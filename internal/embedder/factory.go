package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds provider configuration
type Config struct {
	Provider  string
	Model     string
	Host      string
	CacheSize int
}

// New creates an embedding service with explicit configuration
func New(cfg Config) (*Service, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOllama:
		return NewService(NewOllamaProvider(cfg.Host, cfg.Model), cfg.CacheSize), nil
	case ProviderOffline:
		return NewService(NewOfflineProvider(), cfg.CacheSize), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewFromEnv creates an embedding service based on environment variables.
// Priority:
//  1. VAULTSEARCH_EMBEDDING_PROVIDER (ollama, offline)
//  2. OLLAMA_HOST set -> ollama
//  3. Default to offline
func NewFromEnv() (*Service, error) {
	provider := os.Getenv("VAULTSEARCH_EMBEDDING_PROVIDER")
	host := os.Getenv("OLLAMA_HOST")
	model := os.Getenv("VAULTSEARCH_EMBEDDING_MODEL")

	if provider != "" {
		return New(Config{Provider: provider, Model: model, Host: host})
	}
	if host != "" {
		return New(Config{Provider: ProviderOllama, Model: model, Host: host})
	}
	return New(Config{Provider: ProviderOffline})
}

// DetectProvider returns the provider NewFromEnv would select
func DetectProvider() string {
	if provider := os.Getenv("VAULTSEARCH_EMBEDDING_PROVIDER"); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv("OLLAMA_HOST") != "" {
		return ProviderOllama
	}
	return ProviderOffline
}
