package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "*", cfg.Server.Origin)
	assert.Equal(t, "data", cfg.Store.DataPath)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 5, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
  origin: "https://app.example.com"
store:
  data_path: /var/lib/ragstore
embedder:
  type: openai
  openai:
    model: text-embedding-3-small
chat:
  enabled: true
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://app.example.com", cfg.Server.Origin)
	assert.Equal(t, "/var/lib/ragstore", cfg.Store.DataPath)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.True(t, cfg.Chat.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATA_PATH", "/custom/data")
	t.Setenv("ORIGIN", "https://other.example.com")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("SECRET_KEY", "signing-key")
	t.Setenv("ADMIN_SECRET", "$2a$10$fakehash")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/custom/data", cfg.Store.DataPath)
	assert.Equal(t, "https://other.example.com", cfg.Server.Origin)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "signing-key", cfg.Auth.SecretKey)
	assert.Equal(t, "$2a$10$fakehash", cfg.Auth.AdminHash)
}

func TestAuthEnabledIgnoresGarbage(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "definitely")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Auth.Enabled)
}
