// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the generation endpoint: one request carries a provider tag
// and a prompt, and the response is the model's raw text. The text is not
// validated here.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Request is one generation call.
type Request struct {
	// Provider selects the backend (gemini, anthropic, openai, or an alias).
	Provider string

	// Prompt is the full instruction text.
	Prompt string
}

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Backend is a single provider SDK adapter.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// providerAliases maps accepted tags to canonical provider names.
var providerAliases = map[string]string{
	"gemini":    "gemini",
	"google":    "gemini",
	"anthropic": "anthropic",
	"claude":    "anthropic",
	"openai":    "openai",
	"gpt":       "openai",
}

// CanonicalProvider normalizes a provider tag. Unknown tags are returned
// lowercased.
func CanonicalProvider(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if c, ok := providerAliases[tag]; ok {
		return c
	}
	return tag
}

// Router dispatches requests to registered backends by provider tag.
type Router struct {
	backends map[string]Backend
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{backends: make(map[string]Backend)}
}

// Register adds a backend under a provider tag.
func (r *Router) Register(provider string, b Backend) {
	r.backends[CanonicalProvider(provider)] = b
}

// Providers lists the registered provider names.
func (r *Router) Providers() []string {
	out := make([]string, 0, len(r.backends))
	for p := range r.backends {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Generate implements Generator.
func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	name := CanonicalProvider(req.Provider)
	b, ok := r.backends[name]
	if !ok {
		return "", fmt.Errorf("provider %q not configured (have %v)", req.Provider, r.Providers())
	}
	return b.Complete(ctx, req.Prompt)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
