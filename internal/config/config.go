// Package config provides configuration loading and structs for the shop search service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. One explicit object
// passed at construction replaces script-relative path constants; there is
// no global mutable state.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds corpus and index artifact paths.
type StorageConfig struct {
	// DataFile is the scraped corpus JSON (array of documents, or an object
	// wrapping one).
	DataFile string `yaml:"data_file"`
	// DatabasePath is the SQLite document store.
	DatabasePath string `yaml:"database_path"`
	// IndexDir holds the persisted artifact (vectors, metadata, manifest).
	IndexDir string `yaml:"index_dir"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "remote", "mock".
	Provider  string `yaml:"provider"`
	ModelName string `yaml:"model_name"`
	ModelPath string `yaml:"model_path"`
	Dimensions int   `yaml:"dimensions"`
	MaxTokens  int   `yaml:"max_tokens"`
	CacheSize  int   `yaml:"cache_size"`
	// BaseURL and APIKeyEnv configure the remote provider.
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	// BatchSize bounds one embedding request during a build.
	BatchSize int `yaml:"batch_size"`
}

// ChunkingConfig holds document chunking settings (in characters).
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	DefaultTopK int    `yaml:"default_top_k"`
	MaxTopK     int    `yaml:"max_top_k"`
	IndexType   string `yaml:"index_type"`
}

// WatchConfig holds corpus file watch settings for server mode.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands relative paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DataFile = expandPath(cfg.Storage.DataFile, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Validate rejects configurations that would make the pipeline misbehave
// rather than letting them fail later.
func (c *Config) Validate() error {
	if c.Chunking.ChunkOverlap <= 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking requires 0 < chunk_overlap < chunk_size, got %d/%d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	switch c.Embedding.Provider {
	case "onnx", "remote", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, remote, mock)", c.Embedding.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
