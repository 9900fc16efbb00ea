// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/core"
)

// Config holds the full configuration for a quaerit corpus.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Search   SearchConfig   `yaml:"search"`
	AI       AIConfig       `yaml:"ai"`
	Index    IndexConfig    `yaml:"index"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig locates the corpus database.
type DatabaseConfig struct {
	// Path is the Badger database directory.
	Path string `yaml:"path"`

	// InMemory keeps all data in memory. Nothing survives the process;
	// meant for tests and throwaway experiments.
	InMemory bool `yaml:"in_memory"`
}

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // words per chunk
	Overlap int `yaml:"overlap"` // words shared between adjacent chunks
}

// SearchConfig controls retrieval policy.
type SearchConfig struct {
	DefaultTopK     int     `yaml:"default_top_k"`
	MaxTopK         int     `yaml:"max_top_k"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	FeedbackWeight  float64 `yaml:"feedback_weight"`
}

// AIConfig locates the embedding and answer generation services.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ChatHost       string `yaml:"chat_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`

	// Token is the literal API token. Local OpenAI-compatible servers
	// ignore it.
	Token string `yaml:"token"`

	// TokenEnv names an environment variable holding the API token. When
	// set and the variable is non-empty, it overrides Token, keeping
	// secrets out of config files.
	TokenEnv string `yaml:"token_env"`

	MaxAnswerTokens int `yaml:"max_answer_tokens"`
}

// IndexConfig controls which files the CLI's document walker picks up.
type IndexConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./corpus_db",
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Search: SearchConfig{
			DefaultTopK:     5,
			MaxTopK:         20,
			OverfetchFactor: 3,
			FeedbackWeight:  0.05,
		},
		AI: AIConfig{
			EmbeddingHost:   "http://localhost:11434/v1",
			ChatHost:        "http://localhost:11434/v1",
			EmbeddingModel:  "embeddinggemma",
			ChatModel:       "qwen2.5:3b",
			Token:           "none",
			MaxAnswerTokens: 1000,
		},
		Index: IndexConfig{
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.git/**"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file, layering it over the defaults.
// A missing file is not an error; it yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := core.ValidateChunkingParams(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		return err
	}

	if c.Search.DefaultTopK < 1 {
		return errors.New("config: search.default_top_k must be at least 1")
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK {
		return errors.New("config: search.max_top_k must not be below search.default_top_k")
	}
	if c.Search.OverfetchFactor < 1 {
		return errors.New("config: search.overfetch_factor must be at least 1")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}

	return nil
}

// AIConfig materializes the ai package's configuration, resolving the token
// environment variable if one is named.
func (c *Config) AIConfig() *ai.Config {
	token := c.AI.Token
	if c.AI.TokenEnv != "" {
		if env := os.Getenv(c.AI.TokenEnv); env != "" {
			token = env
		}
	}

	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithToken(token),
	)
	if c.AI.MaxAnswerTokens > 0 {
		cfg.MaxAnswerTokens = c.AI.MaxAnswerTokens
	}
	cfg.Normalize()

	return cfg
}
