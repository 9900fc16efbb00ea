package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/quaerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./corpus_db", cfg.Database.Path)
	assert.False(t, cfg.Database.InMemory)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, 20, cfg.Search.MaxTopK)
	assert.Equal(t, 3, cfg.Search.OverfetchFactor)
	assert.InDelta(t, 0.05, cfg.Search.FeedbackWeight, 1e-9)
	assert.Equal(t, []string{"**/*.txt"}, cfg.Index.Includes)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quaerit.yaml")
	content := []byte("search:\n  default_top_k: 7\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Search.DefaultTopK, "named field overridden")
	assert.Equal(t, "debug", cfg.Logging.Level, "named field overridden")
	assert.Equal(t, 20, cfg.Search.MaxTopK, "unnamed fields keep defaults")
	assert.Equal(t, 500, cfg.Chunking.Size, "unnamed sections keep defaults")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quaerit.yaml")

	cfg := Default()
	cfg.Database.Path = "/var/lib/quaerit"
	cfg.Search.FeedbackWeight = 0.1
	cfg.Index.Includes = []string{"**/*.txt", "**/*.md"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Chunking.Size = 0 },
			wantErr: "chunk size",
		},
		{
			name:    "overlap not below size",
			mutate:  func(c *Config) { c.Chunking.Overlap = 500 },
			wantErr: "overlap",
		},
		{
			name:    "zero default top k",
			mutate:  func(c *Config) { c.Search.DefaultTopK = 0 },
			wantErr: "default_top_k",
		},
		{
			name:    "max below default",
			mutate:  func(c *Config) { c.Search.MaxTopK = 3 },
			wantErr: "max_top_k",
		},
		{
			name:    "zero overfetch factor",
			mutate:  func(c *Config) { c.Search.OverfetchFactor = 0 },
			wantErr: "overfetch_factor",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:   "empty log level is allowed",
			mutate: func(c *Config) { c.Logging.Level = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateChunkingWrapsConfigurationError(t *testing.T) {
	cfg := Default()
	cfg.Chunking.Size = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.EmbeddingHost = "http://embed.local"
	cfg.AI.ChatHost = "http://chat.local/v1"
	cfg.AI.EmbeddingModel = "nomic-embed-text"
	cfg.AI.MaxAnswerTokens = 400

	aiCfg := cfg.AIConfig()

	assert.Equal(t, "http://embed.local/v1", aiCfg.EmbeddingHost, "host is normalized")
	assert.Equal(t, "http://chat.local/v1", aiCfg.ChatHost)
	assert.Equal(t, "nomic-embed-text", aiCfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", aiCfg.ChatModel)
	assert.Equal(t, "none", aiCfg.Token)
	assert.Equal(t, 400, aiCfg.MaxAnswerTokens)
}

func TestAIConfigTokenEnv(t *testing.T) {
	cfg := Default()
	cfg.AI.Token = "literal"
	cfg.AI.TokenEnv = "QUAERIT_TEST_TOKEN"

	t.Setenv("QUAERIT_TEST_TOKEN", "from-env")
	assert.Equal(t, "from-env", cfg.AIConfig().Token, "environment wins when set")

	t.Setenv("QUAERIT_TEST_TOKEN", "")
	assert.Equal(t, "literal", cfg.AIConfig().Token, "empty environment falls back")
}
