// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deck assembles a cover, the resolved body slides, and a references
// slide into one exportable deck.
package deck

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/blueprint"
	"github.com/pdiddy/deck-engine/internal/layout"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// Logo is an optional image drawn on every slide.
type Logo struct {
	Data     []byte
	MimeType string
}

// Renderer draws slides onto a target and encodes the finished deck. There
// is one draw routine per layout kind. Draw calls append a slide; a failed
// call aborts the deck.
type Renderer interface {
	DrawCover(title string, presenters []string, theme types.Theme, logo *Logo) error
	DrawOneCard(title string, c layout.Card, theme types.Theme, logo *Logo) error
	DrawTwoColumn(title string, c layout.Columns, theme types.Theme, logo *Logo) error
	DrawThreeColumn(title string, items layout.Items, theme types.Theme, logo *Logo) error
	DrawTwoByTwo(title string, items layout.Items, theme types.Theme, logo *Logo) error
	DrawStacking(title string, items layout.Items, theme types.Theme, logo *Logo) error
	DrawReferences(title string, citations []string, theme types.Theme, logo *Logo) error

	// Encode returns the finished deck as bytes.
	Encode() ([]byte, error)
}

// ErrContentMismatch reports a resolved slide whose content does not fit
// its kind.
var ErrContentMismatch = errors.New("content does not match layout kind")

// referenceTitles maps lowercase language names to the references slide title.
var referenceTitles = map[string]string{
	"indonesian": "REFERENSI",
	"english":    "REFERENCES",
	"french":     "RÉFÉRENCES",
	"german":     "REFERENZEN",
	"spanish":    "REFERENCIAS",
	"japanese":   "参考文献",
}

const defaultReferenceTitle = "REFERENCES"

// ReferenceTitle returns the localized references title, English when the
// language is not known.
func ReferenceTitle(language string) string {
	if t, ok := referenceTitles[strings.ToLower(strings.TrimSpace(language))]; ok {
		return t
	}
	return defaultReferenceTitle
}

// Deck is an assembled, encoded deck.
type Deck struct {
	// Slides holds the resolved body slides in order.
	Slides []layout.Slide

	// Citations holds the formatted references.
	Citations []string

	// SlideCount counts cover, body, and references slides.
	SlideCount int

	// Data is the encoded artifact.
	Data []byte
}

// Progress receives human-readable stage names.
type Progress func(stage string)

// StageReferences is reported once the body slides are drawn.
const StageReferences = "Finalizing references"

// StageSlide names the stage of drawing slide n, counting the cover as 1.
func StageSlide(n int) string { return fmt.Sprintf("Building slide %d", n) }

// Assembler orders and draws slides.
type Assembler struct {
	log      *zap.Logger
	progress Progress
}

// NewAssembler creates an Assembler. progress may be nil.
func NewAssembler(log *zap.Logger, progress Progress) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	if progress == nil {
		progress = func(string) {}
	}
	return &Assembler{log: log, progress: progress}
}

// Assemble draws cover, one slide per blueprint slide in order, and the
// references slide onto r, then encodes the deck. The slide count is always
// the number of blueprint slides plus two, whatever count was requested.
func (a *Assembler) Assemble(cfg types.SynthesisConfig, bp types.Blueprint, r Renderer, logo *Logo) (*Deck, error) {
	if err := r.DrawCover(cfg.Title, cfg.Presenters, cfg.Theme, logo); err != nil {
		return nil, fmt.Errorf("drawing cover: %w", err)
	}

	slides := layout.ResolveAll(bp.Slides)
	for i, s := range slides {
		a.progress(StageSlide(i + 2))
		if err := drawSlide(r, s, cfg.Theme, logo); err != nil {
			return nil, fmt.Errorf("drawing slide %d (%s): %w", i+2, s.Kind, err)
		}
	}

	a.progress(StageReferences)
	citations := blueprint.FormatCitations(bp.Citations)
	if err := r.DrawReferences(ReferenceTitle(cfg.Language), citations, cfg.Theme, logo); err != nil {
		return nil, fmt.Errorf("drawing references: %w", err)
	}

	data, err := r.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding deck: %w", err)
	}

	a.log.Info("deck assembled",
		zap.Int("body_slides", len(slides)),
		zap.Int("citations", len(citations)),
		zap.Int("bytes", len(data)))

	return &Deck{
		Slides:     slides,
		Citations:  citations,
		SlideCount: len(slides) + 2,
		Data:       data,
	}, nil
}

// drawSlide dispatches a resolved slide to the renderer routine for its kind.
func drawSlide(r Renderer, s layout.Slide, theme types.Theme, logo *Logo) error {
	switch s.Kind {
	case layout.TwoCol:
		c, ok := s.Content.(layout.Columns)
		if !ok {
			return ErrContentMismatch
		}
		return r.DrawTwoColumn(s.Title, c, theme, logo)
	case layout.ThreeCol, layout.TwoByTwo, layout.Stacking:
		items, ok := s.Content.(layout.Items)
		if !ok {
			return ErrContentMismatch
		}
		switch s.Kind {
		case layout.ThreeCol:
			return r.DrawThreeColumn(s.Title, items, theme, logo)
		case layout.TwoByTwo:
			return r.DrawTwoByTwo(s.Title, items, theme, logo)
		default:
			return r.DrawStacking(s.Title, items, theme, logo)
		}
	default:
		c, ok := s.Content.(layout.Card)
		if !ok {
			return ErrContentMismatch
		}
		return r.DrawOneCard(s.Title, c, theme, logo)
	}
}
