// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/blob"
	"github.com/pdiddy/deck-engine/internal/deck"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrInvalid marks a request the service refuses to process.
var ErrInvalid = errors.New("invalid request")

// ErrNoGenerator is returned by aiProxy when no provider is configured.
var ErrNoGenerator = errors.New("generation is not configured")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Service is the backend behind the HTTP tunnel. It owns timestamps and
// ids of the records it stores.
type Service struct {
	store *store.Store
	blobs blob.Store
	gen   llm.Generator
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a Service. gen may be nil, which disables aiProxy.
func NewService(st *store.Store, blobs blob.Store, gen llm.Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, blobs: blobs, gen: gen, log: log, now: time.Now}
}

// keepOrNewID returns id when it is a valid UUID, otherwise a fresh one.
func keepOrNewID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewString()
}

// SavePresentation stores the artifact and the record. The record's id is
// kept when it is a UUID; createdAt survives re-saves of the same id.
func (s *Service) SavePresentation(ctx context.Context, req SavePresentationRequest) (types.PresentationRecord, error) {
	rec := req.Presentation
	if strings.TrimSpace(rec.Title) == "" {
		return rec, invalid("presentation title is required")
	}
	artifact, err := base64.StdEncoding.DecodeString(req.ArtifactData)
	if err != nil {
		return rec, invalid("artifact is not valid base64: %v", err)
	}
	if len(artifact) == 0 {
		return rec, invalid("artifact is empty")
	}

	rec.ID = keepOrNewID(rec.ID)
	now := s.now().UTC()
	rec.CreatedAt = now
	prev, perr := s.store.GetPresentation(ctx, rec.ID)
	resave := perr == nil
	if resave {
		rec.CreatedAt = prev.CreatedAt
	}
	rec.UpdatedAt = now
	if rec.CollectionIDs == nil {
		rec.CollectionIDs = []string{}
	}

	rec.ArtifactKey = blob.PresentationKey(rec.ID, deck.Extension(req.ArtifactFormat))
	mime := deck.MimeType(req.ArtifactFormat)

	// A re-save in the same format overwrites the artifact in place; keep the
	// old bytes so a failed record write can put them back.
	overwrite := resave && prev.ArtifactKey == rec.ArtifactKey
	var previous []byte
	if overwrite {
		if previous, err = s.blobs.Get(ctx, rec.ArtifactKey); err != nil {
			s.log.Warn("previous artifact unreadable", zap.String("key", rec.ArtifactKey), zap.Error(err))
			previous = nil
		}
	}

	if err := s.blobs.Put(ctx, rec.ArtifactKey, artifact, mime); err != nil {
		return rec, fmt.Errorf("storing artifact: %w", err)
	}
	if err := s.store.SavePresentation(ctx, rec); err != nil {
		s.revertArtifact(context.WithoutCancel(ctx), rec.ArtifactKey, overwrite, previous, mime)
		return rec, err
	}
	if resave && prev.ArtifactKey != "" && prev.ArtifactKey != rec.ArtifactKey {
		if err := s.blobs.Delete(ctx, prev.ArtifactKey); err != nil {
			s.log.Warn("removing replaced artifact failed", zap.String("key", prev.ArtifactKey), zap.Error(err))
		}
	}

	s.log.Info("presentation stored",
		zap.String("id", rec.ID),
		zap.String("artifact", rec.ArtifactKey),
		zap.Int("bytes", len(artifact)))
	return rec, nil
}

// revertArtifact undoes an artifact write whose record was not stored. An
// overwritten artifact gets its previous bytes back; a new one is removed.
// An overwritten artifact whose previous bytes could not be read is left
// alone, since the stored record still points at it.
func (s *Service) revertArtifact(ctx context.Context, key string, overwrite bool, previous []byte, mime string) {
	if !overwrite {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("removing orphaned artifact failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	if previous == nil {
		s.log.Warn("artifact overwritten without a stored record", zap.String("key", key))
		return
	}
	if err := s.blobs.Put(ctx, key, previous, mime); err != nil {
		s.log.Warn("restoring previous artifact failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePresentation removes the record and its artifact.
func (s *Service) DeletePresentation(ctx context.Context, id string) error {
	rec, err := s.store.GetPresentation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePresentation(ctx, id); err != nil {
		return err
	}
	if rec.ArtifactKey != "" {
		if err := s.blobs.Delete(ctx, rec.ArtifactKey); err != nil {
			s.log.Warn("removing artifact failed", zap.String("key", rec.ArtifactKey), zap.Error(err))
		}
	}
	s.log.Info("presentation deleted", zap.String("id", id))
	return nil
}

// ListPresentations returns one page of presentations.
func (s *Service) ListPresentations(ctx context.Context, q types.ListQuery) (types.Page[types.PresentationRecord], error) {
	return s.store.ListPresentations(ctx, q)
}

// SaveQuestion stores a question.
func (s *Service) SaveQuestion(ctx context.Context, rec types.QuestionRecord) (types.QuestionRecord, error) {
	if strings.TrimSpace(rec.Question) == "" {
		return rec, invalid("question text is required")
	}
	if rec.CollectionID == "" {
		return rec, invalid("collectionId is required")
	}
	if rec.BloomLevel == "" {
		rec.BloomLevel = types.BloomRemember
	}

	rec.ID = keepOrNewID(rec.ID)
	now := s.now().UTC()
	rec.CreatedAt = now
	if prev, err := s.store.GetQuestion(ctx, rec.ID); err == nil {
		rec.CreatedAt = prev.CreatedAt
	}
	rec.UpdatedAt = now
	if err := s.store.SaveQuestion(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// DeleteQuestion removes a question.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	return s.store.DeleteQuestion(ctx, id)
}

// ListQuestions returns one page of questions.
func (s *Service) ListQuestions(ctx context.Context, q types.ListQuery) (types.Page[types.QuestionRecord], error) {
	return s.store.ListQuestions(ctx, q)
}

// FullText returns a document's extracted text.
func (s *Service) FullText(ctx context.Context, id string) (string, error) {
	return s.store.FullText(ctx, id)
}

// Documents returns library documents by id, or all of them.
func (s *Service) Documents(ctx context.Context, ids []string) ([]types.SourceDocument, error) {
	docs, err := s.store.Documents(ctx, ids)
	if docs == nil && err == nil {
		docs = []types.SourceDocument{}
	}
	return docs, err
}

// Generate runs one generation call for a client.
func (s *Service) Generate(ctx context.Context, provider, prompt string) (string, error) {
	if s.gen == nil {
		return "", ErrNoGenerator
	}
	if strings.TrimSpace(prompt) == "" {
		return "", invalid("prompt is required")
	}
	return s.gen.Generate(ctx, llm.Request{Provider: provider, Prompt: prompt})
}
