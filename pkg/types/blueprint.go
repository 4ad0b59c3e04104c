// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// Theme is the visual theme applied to every slide of a deck.
type Theme struct {
	// Name identifies the theme (e.g. "modern").
	Name string `json:"name" yaml:"name"`

	// PrimaryColor is a CSS hex color used for titles and accents.
	PrimaryColor string `json:"primaryColor" yaml:"primary_color"`

	// SecondaryColor is a CSS hex color used for cards and backgrounds.
	SecondaryColor string `json:"secondaryColor" yaml:"secondary_color"`

	// FontFamily is the font stack for slide text.
	FontFamily string `json:"fontFamily" yaml:"font_family"`
}

// SynthesisConfig is the immutable input to one synthesis run.
type SynthesisConfig struct {
	// Title is the deck title shown on the cover.
	Title string `json:"title" yaml:"title"`

	// Context is the caller's strategic goal for the deck.
	Context string `json:"context" yaml:"context"`

	// Presenters are listed on the cover.
	Presenters []string `json:"presenters" yaml:"presenters"`

	// Theme is applied to every slide.
	Theme Theme `json:"theme" yaml:"theme"`

	// SlideCount is the requested total including cover and references.
	// It is advisory input to the prompt.
	SlideCount int `json:"slideCount" yaml:"slide_count"`

	// Language is the target language name (e.g. "English", "Indonesian").
	Language string `json:"language" yaml:"language"`

	// Provider is the generation endpoint's provider tag (e.g. "gemini").
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// SlideSpec is one slide as described by an untrusted blueprint. Data keeps
// the raw JSON so the layout resolver can read it in document order.
type SlideSpec struct {
	// LayoutType is the declared layout tag exactly as the producer wrote it.
	LayoutType string `json:"layoutType"`

	// Title is the slide title; may be empty.
	Title string `json:"title"`

	// Data is the layout payload. Its shape is not guaranteed to match the
	// declared layout.
	Data json.RawMessage `json:"data,omitempty"`
}

// Blueprint is the canonical deck description after normalization.
type Blueprint struct {
	Slides    []SlideSpec `json:"slides"`
	Citations []string    `json:"citations"`
}
