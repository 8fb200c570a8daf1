// Package config loads application configuration from a YAML file, writing
// defaults when none exists. Credentials are never stored in the file; each
// remote provider section names the environment variable holding its key.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProviderConfig selects and configures one provider (embedding or
// generation). Provider is "ollama" (local, no credential) or "openai"
// (remote, credential required).
type ProviderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// APIKey resolves the provider credential from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// LLMConfig configures the generation provider.
type LLMConfig struct {
	ProviderConfig  `yaml:",inline"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// VectorStoreConfig selects the vector index backend.
type VectorStoreConfig struct {
	Type string `yaml:"type"` // sqlite | chromem | memory
	Dir  string `yaml:"dir"`
}

// ChunkingConfig configures document splitting (ingestion only).
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// CompressionConfig configures the optional summarization stage
// (ingestion only).
type CompressionConfig struct {
	Enabled bool    `yaml:"enabled"`
	Ratio   float64 `yaml:"ratio"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	LLM           LLMConfig         `yaml:"llm"`
	Embedder      ProviderConfig    `yaml:"embedder"`
	VectorStore   VectorStoreConfig `yaml:"vector_store"`
	Chunking      ChunkingConfig    `yaml:"chunking"`
	Compression   CompressionConfig `yaml:"compression"`
	TopK          int               `yaml:"top_k"`
	DocsDir       string            `yaml:"docs_dir"`
	PDFServiceURL string            `yaml:"pdf_service_url,omitempty"`
	ServerAddr    string            `yaml:"server_addr"`
}

// Load reads a config from the given path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then the user config directory.
// If neither exists, defaults are written to the user path and returned.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "campusfaq", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-3.5-turbo"
		default:
			cfg.LLM.Model = "llama3.2"
		}
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 500
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "ollama"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Provider {
		case "openai":
			cfg.Embedder.Model = "text-embedding-ada-002"
		default:
			cfg.Embedder.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedder.Provider == "openai" && cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = filepath.Join("data", "vector_db", "index")
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Compression.Ratio == 0 {
		cfg.Compression.Ratio = 0.5
	}

	if cfg.TopK == 0 {
		cfg.TopK = 2
	}
	if cfg.DocsDir == "" {
		cfg.DocsDir = filepath.Join("data", "docs")
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
}
