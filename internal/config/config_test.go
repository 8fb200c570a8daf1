package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.False(t, cfg.Compression.Enabled)
	assert.Equal(t, 0.5, cfg.Compression.Ratio)
	assert.Equal(t, 2, cfg.TopK)
	assert.Equal(t, ":8080", cfg.ServerAddr)
}

func TestLoad_YAMLOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  temperature: 0.7
embedder:
  provider: openai
vector_store:
  type: memory
top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedder.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, 5, cfg.TopK)
	// Untouched sections still get defaults.
	assert.Equal(t, 500, cfg.Chunking.Size)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestProviderConfig_APIKey(t *testing.T) {
	t.Setenv("CAMPUSFAQ_TEST_KEY", "sk-secret")

	p := ProviderConfig{APIKeyEnv: "CAMPUSFAQ_TEST_KEY"}
	assert.Equal(t, "sk-secret", p.APIKey())

	assert.Empty(t, ProviderConfig{}.APIKey())
	assert.Empty(t, ProviderConfig{APIKeyEnv: "CAMPUSFAQ_UNSET_KEY"}.APIKey())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultConfig()
	cfg.TopK = 4
	cfg.DocsDir = "/srv/docs"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.TopK)
	assert.Equal(t, "/srv/docs", loaded.DocsDir)
	assert.Equal(t, cfg.LLM.Model, loaded.LLM.Model)
}
