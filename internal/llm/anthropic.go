// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no Anthropic model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

const defaultMaxOutputTokens = 8192

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicBackend creates an Anthropic backend. baseURL may be empty.
// maxRetries 0 sends each prompt exactly once; negative keeps the SDK default.
func NewAnthropicBackend(apiKey, baseURL, model string, maxTokens, maxRetries int) (*AnthropicBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	opts := []aoption.RequestOption{aoption.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	if maxRetries >= 0 {
		opts = append(opts, aoption.WithMaxRetries(maxRetries))
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	return &AnthropicBackend{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// Complete implements Backend.
func (a *AnthropicBackend) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
	}
	return sb.String(), nil
}
