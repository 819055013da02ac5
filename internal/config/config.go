// Package config loads nixin configuration from YAML with environment
// overrides layered on top. A missing config file is not an error:
// defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nixin/internal/embedding"
)

// Config holds all nixin configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Intent backend selection
	Intent IntentConfig `yaml:"intent"`

	// Remote LLM backend
	Remote RemoteConfig `yaml:"remote"`

	// Embedding engine (embedding backend and semantic recall)
	Embedding embedding.Config `yaml:"embedding"`

	// Memory store
	Memory MemoryConfig `yaml:"memory"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// IntentConfig selects and parameterizes the classification backend.
type IntentConfig struct {
	Backend          string `yaml:"backend"` // rule, embedding, zeroshot, remote
	ZeroShotEndpoint string `yaml:"zeroshot_endpoint"`
	ZeroShotAPIKey   string `yaml:"zeroshot_api_key"`
}

// RemoteConfig configures the credentialed LLM backend.
type RemoteConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// MemoryConfig configures the SQLite memory store.
type MemoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Name:    "nixin",
		Version: "1.0.0",

		Intent: IntentConfig{
			Backend: "rule",
		},

		Remote: RemoteConfig{
			BaseURL: "https://api.anthropic.com/v1",
			Model:   "claude-3-5-sonnet-20241022",
			Timeout: "30s",
		},

		Embedding: embedding.DefaultConfig(),

		Memory: MemoryConfig{
			DatabasePath: "data/nixin.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "nixin.log",
		},
	}
}

// Load reads configuration from a YAML file. A .env file in the
// working directory is loaded first so its variables participate in
// the environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Remote.APIKey = key
	}
	if key := os.Getenv("HF_API_KEY"); key != "" {
		c.Intent.ZeroShotAPIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Embedding.OllamaEndpoint = host
	}

	if backend := os.Getenv("NIXIN_BACKEND"); backend != "" {
		c.Intent.Backend = backend
	}
	if path := os.Getenv("NIXIN_DB"); path != "" {
		c.Memory.DatabasePath = path
	}
}

// GetRemoteTimeout returns the remote backend timeout as a duration.
func (c *Config) GetRemoteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
