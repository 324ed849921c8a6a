package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		EnvIndices, EnvDefaultIndex, EnvVault, EnvHost, EnvPort,
		EnvEmbeddingHost, EnvEmbeddingModel, EnvCache,
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.IndicesDir, filepath.Join(".smart-search", "indices"))
	assert.Equal(t, "vault", cfg.DefaultIndex)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 5555, cfg.Port)
	assert.Empty(t, cfg.EmbeddingHost)
	assert.Empty(t, cfg.EmbeddingModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvIndices, "/data/indices")
	t.Setenv(EnvDefaultIndex, "personal")
	t.Setenv(EnvVault, "/home/me/notes")
	t.Setenv(EnvHost, "127.0.0.2")
	t.Setenv(EnvPort, "6000")
	t.Setenv(EnvEmbeddingHost, "http://gpu-box:11434")
	t.Setenv(EnvEmbeddingModel, "nomic-embed-text")
	t.Setenv(EnvCache, "/data/cache")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/indices", cfg.IndicesDir)
	assert.Equal(t, "personal", cfg.DefaultIndex)
	assert.Equal(t, "/home/me/notes", cfg.Vault)
	assert.Equal(t, "127.0.0.2", cfg.Host)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "http://gpu-box:11434", cfg.EmbeddingHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "/data/cache", cfg.CacheDir)
}

func TestLoadCacheDisabled(t *testing.T) {
	// Set but empty disables the cache; unset means the default location.
	t.Setenv(EnvCache, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.CacheDir)
}

func TestLoadInvalidPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "-1", "70000"} {
		t.Setenv(EnvPort, port)
		_, err := Load()
		assert.Error(t, err, port)
	}
}
