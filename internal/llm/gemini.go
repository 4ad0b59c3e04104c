// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend calls the Gemini API.
type GeminiBackend struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiBackend creates a Gemini backend.
func NewGeminiBackend(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiBackend{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

// Complete implements Backend.
func (g *GeminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if g.maxTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: g.maxTokens}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}
