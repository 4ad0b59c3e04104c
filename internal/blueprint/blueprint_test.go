// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// --- Sanitize ---

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced with trailing comma", "```json\n{\"a\":1,}\n```", `{"a":1}`},
		{"uppercase fence", "```JSON\n[1,2]\n```", `[1,2]`},
		{"bare fence", "```\n{\"a\":true}\n```", `{"a":true}`},
		{"preamble and postamble", "Sure! Here is your deck:\n{\"slides\":[]}\nHope this helps.", `{"slides":[]}`},
		{"array root", "  [ {\"x\":1}, ]  ", `[ {"x":1}]`},
		{"nested trailing commas", `{"a":[1,2,],"b":{"c":3,},}`, `{"a":[1,2],"b":{"c":3}}`},
		{"no json at all", "I cannot help with that.", "I cannot help with that."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestParse_MalformedIsHardError(t *testing.T) {
	_, err := Parse("```json\n{\"slides\": [ {\"title\": \"x\" ]}\n```")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedBlueprint)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, FailureLabel, f.Label())
}

func TestParse_NoJSON(t *testing.T) {
	_, err := Parse("no braces here")
	assert.ErrorIs(t, err, ErrMalformedBlueprint)
}

// --- Normalize ---

const slidesJSON = `[{"layoutType":"1_CARD","title":"One","data":"alpha"},{"layoutType":"2_COL","title":"Two","data":{"left":"l","right":"r"}}]`

func TestNormalize_AlternateShapesAgree(t *testing.T) {
	inputs := map[string]string{
		"bare array":   slidesJSON,
		"slides key":   `{"slides":` + slidesJSON + `}`,
		"deck key":     `{"deck":` + slidesJSON + `}`,
		"presentation": `{"presentation":` + slidesJSON + `}`,
	}

	want, err := ParseBlueprint(slidesJSON)
	require.NoError(t, err)
	require.Len(t, want.Slides, 2)
	assert.Equal(t, []string{}, want.Citations)

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ParseBlueprint(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalize_PriorityOrder(t *testing.T) {
	bp, err := ParseBlueprint(`{"deck":[{"title":"from deck"}],"presentation":[{"title":"p"}],"slides":"not an array"}`)
	require.NoError(t, err)
	require.Len(t, bp.Slides, 1)
	assert.Equal(t, "from deck", bp.Slides[0].Title)
}

func TestNormalize_SlideFields(t *testing.T) {
	bp, err := ParseBlueprint(`{"slides":[{"layoutType":"STACKING","title":"S","data":[{"h":"a","b":"b"}]}, "loose text", 42],"citations":["A"]}`)
	require.NoError(t, err)
	require.Len(t, bp.Slides, 3)

	assert.Equal(t, "STACKING", bp.Slides[0].LayoutType)
	assert.Equal(t, "S", bp.Slides[0].Title)
	assert.JSONEq(t, `[{"h":"a","b":"b"}]`, string(bp.Slides[0].Data))

	assert.Equal(t, "", bp.Slides[1].LayoutType)
	assert.Equal(t, `"loose text"`, string(bp.Slides[1].Data))

	assert.Equal(t, types.SlideSpec{}, bp.Slides[2])
	assert.Equal(t, []string{"A"}, bp.Citations)
}

func TestNormalize_InvalidStructure(t *testing.T) {
	tests := []string{
		`{"title":"no slides"}`,
		`{"slides":{"0":"x"}}`,
		`"just a string"`,
		`42`,
	}
	for _, in := range tests {
		_, err := ParseBlueprint(in)
		assert.ErrorIs(t, err, ErrInvalidStructure, in)
		assert.NotErrorIs(t, err, ErrMalformedBlueprint, in)
	}
}

// --- FormatCitations ---

func TestFormatCitations(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"two numbered", []string{"A", "B"}, []string{"1. A", "2. B"}},
		{"single unnumbered", []string{"A"}, []string{"A"}},
		{"empty", []string{}, []string{}},
		{"nil", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCitations(tt.in))
		})
	}
}

// --- Prompt ---

func TestBodySlideCount(t *testing.T) {
	assert.Equal(t, 3, BodySlideCount(5))
	assert.Equal(t, 1, BodySlideCount(3))
	assert.Equal(t, 1, BodySlideCount(2))
	assert.Equal(t, 1, BodySlideCount(0))
}

func TestRenderPrompt(t *testing.T) {
	docs := []types.SourceDocument{
		{ID: "d1", Title: "Paper One", Authors: []string{"Ada Lovelace", "Alan Turing"}, Year: "1950", Publisher: "Mind", Abstract: "SECRET ABSTRACT"},
	}
	cfg := types.SynthesisConfig{SlideCount: 7, Language: "Indonesian", Context: "Explain the trade-offs"}

	prompt, err := RenderPrompt(cfg, docs, "HARVESTED CONTEXT")
	require.NoError(t, err)

	assert.Contains(t, prompt, "CREATE A 5-SLIDE DEEP ANALYSIS DECK IN Indonesian")
	assert.Contains(t, prompt, "Explain the trade-offs")
	assert.Contains(t, prompt, "- TITLE: Paper One | AUTHORS: Ada Lovelace, Alan Turing | YEAR: 1950 | PUB: Mind")
	assert.Contains(t, prompt, "LANGUAGE: Indonesian.")
	assert.Contains(t, prompt, "HARVESTED CONTEXT")
	assert.Contains(t, prompt, `"slides": [`)

	metaStart := strings.Index(prompt, "COLLECTION METADATA:")
	contextStart := strings.Index(prompt, "SOURCE CONTEXT (FOR CONTENT ONLY):")
	require.GreaterOrEqual(t, metaStart, 0)
	require.Greater(t, contextStart, metaStart)
	meta := prompt[metaStart:contextStart]
	assert.Contains(t, meta, "Paper One")
	assert.NotContains(t, meta, "SECRET ABSTRACT", "metadata block must not carry document text")
}

func TestRenderPrompt_DefaultGoal(t *testing.T) {
	prompt, err := RenderPrompt(types.SynthesisConfig{SlideCount: 5, Language: "English"}, nil, "")
	require.NoError(t, err)
	assert.Contains(t, prompt, defaultGoal)
}

// --- Requester ---

func TestRequester_EmptyResponseInterrupts(t *testing.T) {
	for _, resp := range []string{"", "   \n"} {
		gen := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) { return resp, nil })
		_, err := NewRequester(gen, "", nil).Fetch(context.Background(), types.SynthesisConfig{SlideCount: 5}, nil, "")
		assert.ErrorIs(t, err, ErrSynthesisInterrupted)
	}
}

func TestRequester_GeneratorErrorInterrupts(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("connection reset")
	})
	_, err := NewRequester(gen, "", nil).Request(context.Background(), types.SynthesisConfig{}, nil, "")
	assert.ErrorIs(t, err, ErrSynthesisInterrupted)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRequester_ProviderSelection(t *testing.T) {
	var got []string
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = append(got, req.Provider)
		return `{"slides":[]}`, nil
	})

	r := NewRequester(gen, "", nil)
	_, err := r.Fetch(context.Background(), types.SynthesisConfig{}, nil, "")
	require.NoError(t, err)
	_, err = r.Fetch(context.Background(), types.SynthesisConfig{Provider: "anthropic"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultProvider, "anthropic"}, got)
}

func TestRequester_CategoriesAreDistinct(t *testing.T) {
	tests := []struct {
		resp string
		want error
	}{
		{"", ErrSynthesisInterrupted},
		{"{broken", ErrMalformedBlueprint},
		{`{"nothing":true}`, ErrInvalidStructure},
	}
	for _, tt := range tests {
		gen := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) { return tt.resp, nil })
		_, err := NewRequester(gen, "", nil).Fetch(context.Background(), types.SynthesisConfig{}, nil, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, tt.want, tt.resp)

		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, FailureLabel, f.Label())
	}
}
