package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.LLM.Retry.BaseDelay())
	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "memory", cfg.Search.Index)
	assert.Equal(t, "tfidf", cfg.Search.Embedder.Type)
	assert.Equal(t, 10*time.Second, cfg.Providers.Retry.MaxDelay())
	assert.Equal(t, "pl", cfg.Locale)
}

func TestLoad_PartialFileKeepsOverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
chunker:
  size: 500
search:
  index: qdrant
  embedder:
    type: openai
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	require.NotNil(t, cfg.Search.Qdrant)
	assert.Equal(t, "airrag_chunks", cfg.Search.Qdrant.Collection)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Search.Embedder.APIKeyEnv)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":9999"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Addr)
}
