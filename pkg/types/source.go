// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deck-engine pipeline.
// Source documents flow in, blueprints and slide specs live for one synthesis
// run, and presentation and question records are what the backend persists
// and what list views hold.
package types

// SourceDocument is a library item used as synthesis input. The pipeline
// only reads it.
type SourceDocument struct {
	// ID is the library identifier (also the collection id it belongs to).
	ID string `json:"id" yaml:"id"`

	// Title is the document title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the short summary used when no full text is available.
	Abstract string `json:"abstract" yaml:"abstract"`

	// FullTextRef points at a larger extracted-text resource held by the
	// backend. Empty when the document has none.
	FullTextRef string `json:"fullTextRef,omitempty" yaml:"full_text_ref,omitempty"`

	// Authors lists the document authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year as written by the library (e.g. "2021").
	Year string `json:"year" yaml:"year"`

	// Publisher is the journal, conference, or publisher.
	Publisher string `json:"publisher" yaml:"publisher"`
}

// FallbackText returns the abstract, or the title when there is no abstract.
func (d SourceDocument) FallbackText() string {
	if d.Abstract != "" {
		return d.Abstract
	}
	return d.Title
}
