// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no OpenAI model is configured.
const DefaultOpenAIModel = "gpt-4.1"

// OpenAIBackend calls the OpenAI Chat Completions API, or any compatible
// endpoint when baseURL is set.
type OpenAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIBackend creates an OpenAI backend. baseURL may be empty.
// maxRetries 0 sends each prompt exactly once; negative keeps the SDK default.
func NewOpenAIBackend(apiKey, baseURL, model string, maxTokens, maxRetries int) (*OpenAIBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	opts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	if maxRetries >= 0 {
		opts = append(opts, ooption.WithMaxRetries(maxRetries))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	return &OpenAIBackend{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// Complete implements Backend.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
