package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ChatModel)
	assert.Equal(t, "none", cfg.Token)
	assert.Equal(t, 1000, cfg.MaxAnswerTokens)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
		assert.Equal(t, 1000, cfg.MaxAnswerTokens)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	})

	t.Run("with token", func(t *testing.T) {
		cfg := NewConfig(WithToken("sk-test"))

		assert.Equal(t, "sk-test", cfg.Token)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithEmbeddingModel("custom-embed"),
			WithChatModel("custom-chat"),
			WithMaxAnswerTokens(256),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
		assert.Equal(t, "custom-embed", cfg.EmbeddingModel)
		assert.Equal(t, "custom-chat", cfg.ChatModel)
		assert.Equal(t, 256, cfg.MaxAnswerTokens)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name              string
		embeddingHost     string
		chatHost          string
		expectedEmbedding string
		expectedChat      string
	}{
		{
			name:              "already has /v1",
			embeddingHost:     "http://localhost:11434/v1",
			chatHost:          "http://localhost:11434/v1",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "missing /v1",
			embeddingHost:     "http://localhost:11434",
			chatHost:          "http://localhost:11434",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "has trailing slash",
			embeddingHost:     "http://localhost:11434/",
			chatHost:          "http://localhost:11434/",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "empty hosts",
			embeddingHost:     "",
			chatHost:          "",
			expectedEmbedding: "",
			expectedChat:      "",
		},
		{
			name:              "different formats",
			embeddingHost:     "http://embed:8080",
			chatHost:          "http://chat:9090/v1",
			expectedEmbedding: "http://embed:8080/v1",
			expectedChat:      "http://chat:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.embeddingHost,
				ChatHost:      tt.chatHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedChat, cfg.ChatHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:   "http://localhost:11434",
			ChatHost:        "http://localhost:11434",
			EmbeddingModel:  "embeddinggemma",
			ChatModel:       "qwen2.5:3b",
			MaxAnswerTokens: 1000,
		}

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
		assert.Equal(t, "none", cfg.Token)
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := &Config{
			ChatHost:        "http://localhost:11434/v1",
			EmbeddingModel:  "embeddinggemma",
			ChatModel:       "qwen2.5:3b",
			MaxAnswerTokens: 1000,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing chat host", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:   "http://localhost:11434/v1",
			EmbeddingModel:  "embeddinggemma",
			ChatModel:       "qwen2.5:3b",
			MaxAnswerTokens: 1000,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ChatHost")
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:   "http://localhost:11434/v1",
			ChatHost:        "http://localhost:11434/v1",
			ChatModel:       "qwen2.5:3b",
			MaxAnswerTokens: 1000,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("missing chat model", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:   "http://localhost:11434/v1",
			ChatHost:        "http://localhost:11434/v1",
			EmbeddingModel:  "embeddinggemma",
			MaxAnswerTokens: 1000,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ChatModel")
	})

	t.Run("non-positive answer tokens", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:  "http://localhost:11434/v1",
			ChatHost:       "http://localhost:11434/v1",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "MaxAnswerTokens")
	})
}
