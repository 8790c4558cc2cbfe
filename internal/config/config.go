package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/vaultsearch/internal/vault"
)

// Config is the application configuration, loaded from YAML with
// environment overrides
type Config struct {
	VaultPath        string          `yaml:"vault_path"`
	DBPath           string          `yaml:"db_path"`
	MaxFileSizeBytes int64           `yaml:"max_file_size_bytes"`
	ExcludeGlobs     []string        `yaml:"exclude_globs"`
	Embedding        EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // ollama or offline
	Model     string `yaml:"model"`
	Host      string `yaml:"host"`
	CacheSize int    `yaml:"cache_size"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		MaxFileSizeBytes: vault.DefaultMaxFileSize,
		Embedding: EmbeddingConfig{
			Provider: "offline",
		},
	}
}

// Load reads configuration from path (empty = defaults only), then
// applies .env and environment variable overrides
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is fine
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".vaultsearch", "index.db")
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = vault.DefaultMaxFileSize
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the config
func applyEnv(cfg *Config) {
	if v := os.Getenv("VAULTSEARCH_VAULT_PATH"); v != "" {
		cfg.VaultPath = v
	}
	if v := os.Getenv("VAULTSEARCH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("VAULTSEARCH_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("VAULTSEARCH_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && cfg.Embedding.Host == "" {
		cfg.Embedding.Host = v
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.VaultPath == "" {
		return fmt.Errorf("vault_path is required (set it in the config file or VAULTSEARCH_VAULT_PATH)")
	}
	info, err := os.Stat(c.VaultPath)
	if err != nil {
		return fmt.Errorf("vault_path %s: %w", c.VaultPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault_path %s is not a directory", c.VaultPath)
	}
	return nil
}
