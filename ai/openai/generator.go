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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/quaerit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// AnswerGenerator implements ai.AnswerGenerator using OpenAI-compatible chat APIs.
type AnswerGenerator struct {
	client    llms.Model
	maxTokens int
	logger    *slog.Logger
}

// newAnswerGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnswerGenerator(config *ai.Config) (*AnswerGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &AnswerGenerator{
		client:    client,
		maxTokens: config.MaxAnswerTokens,
		logger:    slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewAnswerGenerator creates a new answer generator using the provided configuration.
//
// Returns ai.AnswerGenerator interface to enforce abstraction.
func NewAnswerGenerator(config *ai.Config) (ai.AnswerGenerator, error) {
	return newAnswerGenerator(config)
}

// GenerateAnswer answers the question grounded on the given passages.
// Temperature is pinned to 0 so identical input reproduces identical answers
// as far as the model allows.
func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, question string, passages []ai.Passage) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(answerSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildAnswerPrompt(question, passages)),
			},
		},
	}

	g.logger.Debug("generating answer", "question_length", len(question), "passages", len(passages))

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		g.logger.Error("failed to generate answer", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrProvider, err)
	}

	if len(response.Choices) < 1 {
		return "", fmt.Errorf("%w: model returned no choices", ai.ErrProvider)
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
