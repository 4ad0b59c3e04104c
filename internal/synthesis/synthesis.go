// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis runs one document-to-deck synthesis: harvest source
// text, request and normalize a blueprint, assemble and export the deck,
// and persist it.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/blueprint"
	"github.com/pdiddy/deck-engine/internal/deck"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/persist"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrNoSources is returned when a run has no source documents.
var ErrNoSources = errors.New("no source documents")

// Progress stage names. Slide and reference stages come from the deck
// assembler.
const (
	StageHarvest    = "Context extraction"
	StageBlueprint  = "Synthesizing multi-source intel"
	StageReferences = deck.StageReferences
	StagePersist    = "Persisting"
)

// Progress receives stage names as the run advances.
type Progress func(stage string)

// Result is the outcome of a successful run.
type Result struct {
	Record    types.PresentationRecord
	Blueprint types.Blueprint
	Deck      *deck.Deck
}

// Synthesizer wires the pipeline stages together.
type Synthesizer struct {
	harvester *harvest.Harvester
	requester *blueprint.Requester
	persister *persist.Persister
	format    types.ExportFormat
	logo      *deck.Logo
	log       *zap.Logger

	now         func() time.Time
	newID       func() string
	newRenderer func(ctx context.Context, format types.ExportFormat, title string) deck.Renderer
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithFormat selects the export format (default HTML).
func WithFormat(f types.ExportFormat) Option {
	return func(s *Synthesizer) { s.format = f }
}

// WithLogo draws logo on every slide.
func WithLogo(logo *deck.Logo) Option {
	return func(s *Synthesizer) { s.logo = logo }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Synthesizer.
func New(h *harvest.Harvester, r *blueprint.Requester, p *persist.Persister, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		harvester:   h,
		requester:   r,
		persister:   p,
		format:      types.ExportHTML,
		log:         zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
		newRenderer: deck.NewRenderer,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Synthesize runs the pipeline for docs. The deck is saved only when the
// backend confirms it; any earlier failure aborts the run with nothing
// persisted. Blueprint failures carry a *blueprint.Failure.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg types.SynthesisConfig, docs []types.SourceDocument, progress Progress) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrNoSources
	}
	if progress == nil {
		progress = func(string) {}
	}
	start := s.now()

	progress(StageHarvest)
	harvested, err := s.harvester.Harvest(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("harvesting context: %w", err)
	}
	s.log.Info("context harvested", zap.Int("documents", len(docs)), zap.Int("chars", len([]rune(harvested))))

	progress(StageBlueprint)
	bp, err := s.requester.Fetch(ctx, cfg, docs, harvested)
	if err != nil {
		return nil, err
	}

	renderer := s.newRenderer(ctx, s.format, cfg.Title)
	d, err := deck.NewAssembler(s.log, deck.Progress(progress)).Assemble(cfg, bp, renderer, s.logo)
	if err != nil {
		return nil, fmt.Errorf("assembling deck: %w", err)
	}

	collections := make([]string, len(docs))
	for i, doc := range docs {
		collections[i] = doc.ID
	}
	now := s.now().UTC()
	draft := types.PresentationRecord{
		ID:            s.newID(),
		CollectionIDs: collections,
		Title:         cfg.Title,
		Presenters:    cfg.Presenters,
		Theme:         cfg.Theme,
		SlideCount:    d.SlideCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	progress(StagePersist)
	rec, err := s.persister.Persist(ctx, draft, d.Data, s.format)
	if err != nil {
		return nil, err
	}

	s.log.Info("synthesis complete",
		zap.String("id", rec.ID),
		zap.Int("slides", rec.SlideCount),
		zap.Duration("elapsed", s.now().Sub(start)))
	return &Result{Record: rec, Blueprint: bp, Deck: d}, nil
}
