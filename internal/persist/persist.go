// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package persist hands an assembled deck and its metadata to the backend in
// one request and announces the authoritative record once the backend
// confirms it.
package persist

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrEmptyArtifact is returned when there is nothing to persist.
var ErrEmptyArtifact = errors.New("empty artifact")

// Saver stores a draft record with its base64 artifact and returns the
// record the backend kept.
type Saver interface {
	SavePresentation(ctx context.Context, draft types.PresentationRecord, artifactData string, format types.ExportFormat) (types.PresentationRecord, error)
}

// Persister serializes artifacts and saves them.
type Persister struct {
	saver    Saver
	mutation *mutation.Controller[types.PresentationRecord]
	log      *zap.Logger
}

// New creates a Persister that announces saved records through ctrl.
func New(saver Saver, ctrl *mutation.Controller[types.PresentationRecord], log *zap.Logger) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	return &Persister{saver: saver, mutation: ctrl, log: log}
}

// Encode returns the transport encoding of an artifact.
func Encode(artifact []byte) string {
	return base64.StdEncoding.EncodeToString(artifact)
}

// Persist saves draft with artifact. On success it returns the backend's
// record, which may differ from draft, after announcing it. On failure
// nothing is announced and the deck is not saved.
func (p *Persister) Persist(ctx context.Context, draft types.PresentationRecord, artifact []byte, format types.ExportFormat) (types.PresentationRecord, error) {
	if len(artifact) == 0 {
		return types.PresentationRecord{}, ErrEmptyArtifact
	}
	data := Encode(artifact)

	rec, err := p.mutation.Save(ctx, func(ctx context.Context) (types.PresentationRecord, error) {
		return p.saver.SavePresentation(ctx, draft, data, format)
	})
	if err != nil {
		return types.PresentationRecord{}, fmt.Errorf("saving presentation %s: %w", draft.ID, err)
	}

	p.log.Info("presentation saved",
		zap.String("draft_id", draft.ID),
		zap.String("id", rec.ID),
		zap.Int("slides", rec.SlideCount),
		zap.Int("artifact_bytes", len(artifact)))
	return rec, nil
}
