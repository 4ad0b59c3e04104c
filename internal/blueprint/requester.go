// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blueprint requests a slide-deck blueprint from a generation
// endpoint and turns the untrusted response into a canonical Blueprint.
package blueprint

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// DefaultProvider is the provider tag used when the run does not name one.
const DefaultProvider = "gemini"

// Requester builds the blueprint prompt and makes exactly one generation
// round-trip. It does not retry.
type Requester struct {
	gen      llm.Generator
	provider string
	log      *zap.Logger
}

// NewRequester creates a Requester. An empty provider falls back to
// DefaultProvider.
func NewRequester(gen llm.Generator, provider string, log *zap.Logger) *Requester {
	if provider == "" {
		provider = DefaultProvider
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Requester{gen: gen, provider: provider, log: log}
}

// Request asks the endpoint for a blueprint and returns its raw text. A
// failed call or an empty response fails with ErrSynthesisInterrupted.
func (r *Requester) Request(ctx context.Context, cfg types.SynthesisConfig, docs []types.SourceDocument, harvested string) (string, error) {
	prompt, err := RenderPrompt(cfg, docs, harvested)
	if err != nil {
		return "", err
	}

	provider := cfg.Provider
	if provider == "" {
		provider = r.provider
	}

	r.log.Info("requesting blueprint",
		zap.String("provider", provider),
		zap.Int("body_slides", BodySlideCount(cfg.SlideCount)),
		zap.Int("prompt_chars", len(prompt)))

	text, err := r.gen.Generate(ctx, llm.Request{Provider: provider, Prompt: prompt})
	if err != nil {
		return "", fail(ErrSynthesisInterrupted, fmt.Errorf("generating blueprint: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return "", fail(ErrSynthesisInterrupted, fmt.Errorf("provider %q returned no text", provider))
	}
	return text, nil
}

// Fetch requests a blueprint and parses it into canonical form.
func (r *Requester) Fetch(ctx context.Context, cfg types.SynthesisConfig, docs []types.SourceDocument, harvested string) (types.Blueprint, error) {
	raw, err := r.Request(ctx, cfg, docs, harvested)
	if err != nil {
		return types.Blueprint{}, err
	}
	bp, err := ParseBlueprint(raw)
	if err != nil {
		r.log.Warn("unusable blueprint", zap.Error(err), zap.Int("response_chars", len(raw)))
		return types.Blueprint{}, err
	}
	return bp, nil
}
