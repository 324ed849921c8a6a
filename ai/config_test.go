package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "bge-micro-v2", cfg.Model)
	assert.Equal(t, 64, cfg.BatchSize)
	require.NoError(t, cfg.Validate())
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://embed.local:9100/v1"),
		WithModel("text-embedding-3-small"),
		WithBatchSize(16),
	)
	assert.Equal(t, "http://embed.local:9100/v1", cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 16, cfg.BatchSize)
}

func TestConfigNormalize(t *testing.T) {
	t.Run("adds v1 suffix", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("strips trailing slash before adding v1", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434/"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("leaves v1 suffix alone", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434/v1"))
		cfg.Normalize()
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		cfg := NewConfig(WithHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := NewConfig(WithModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid batch size", func(t *testing.T) {
		cfg := NewConfig(WithBatchSize(0))
		assert.Error(t, cfg.Validate())
	})
}
