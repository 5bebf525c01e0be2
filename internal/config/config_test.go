package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ChunkerConfig{ChunkSize: 500, Overlap: 50, Terminators: "。．！？.!?"}, cfg.Chunker)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 512, cfg.Embedder.Hashing.Dimension)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.SQLite)
	assert.Equal(t, "gemini", cfg.Generator.Type)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.Generator.Gemini.APIKeyEnv)
	assert.Equal(t, 5, cfg.Query.TopK)
	assert.Equal(t, 5, cfg.Summarizer.MaxSentences)
	assert.Equal(t, 10, cfg.Extract.TimeoutSecs)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_FillsSelectedBackends(t *testing.T) {
	cfg, err := Parse([]byte(`
chunker:
  chunk_size: 300
  overlap: -4
embedder:
  type: openai
  openai:
    model: nomic-embed-text
vector_store:
  type: qdrant
generator:
  type: ollama
  ollama:
    model: qwen2.5
query:
  top_k: 8
`))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunker.ChunkSize)
	assert.Equal(t, 0, cfg.Chunker.Overlap)
	assert.Nil(t, cfg.Embedder.Hashing)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "ragqa", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "qwen2.5", cfg.Generator.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Generator.Ollama.BaseURL)
	assert.Equal(t, 120, cfg.Generator.Ollama.TimeoutSecs)
	assert.Nil(t, cfg.Generator.Gemini)
	assert.Equal(t, 8, cfg.Query.TopK)
}

func TestParse_OverlapLargerThanChunkIsKept(t *testing.T) {
	cfg, err := Parse([]byte("chunker: {chunk_size: 10, overlap: 20}\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.Overlap)
}

func TestParse_ExplicitZeroOverlap(t *testing.T) {
	cfg, err := Parse([]byte("chunker: {overlap: 0}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunker.Overlap)

	cfg, err = Parse([]byte("query: {top_k: 3}\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("chunker: [not, a, map]"))
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Query.TopK = 3
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ragqa", "config.yaml"), path)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile("config.yaml", []byte("query: {top_k: 2}\n"), 0o600))
	cfg, path, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 2, cfg.Query.TopK)
}
