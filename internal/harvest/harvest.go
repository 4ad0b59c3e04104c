// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest gathers source text from a set of documents into one
// provenance-tagged context block for the blueprint prompt.
package harvest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// DefaultMaxChars is the harvested context budget. It keeps the blueprint
// request under the generation endpoint's size ceiling.
const DefaultMaxChars = 100000

// TextFetcher loads the extracted full text behind a document's FullTextRef.
type TextFetcher interface {
	FetchFullText(ctx context.Context, ref string) (string, error)
}

// Harvester builds the combined context for a synthesis run.
type Harvester struct {
	fetcher     TextFetcher
	maxChars    int
	concurrency int
	log         *zap.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithMaxChars overrides the character budget.
func WithMaxChars(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.maxChars = n
		}
	}
}

// WithConcurrency lets up to n full-text fetches run at once. Output order
// still follows the input order.
func WithConcurrency(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harvester) {
		if l != nil {
			h.log = l
		}
	}
}

// New creates a Harvester. A nil fetcher means every document uses its
// abstract.
func New(fetcher TextFetcher, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher:     fetcher,
		maxChars:    DefaultMaxChars,
		concurrency: 1,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Harvest returns the provenance-tagged context for docs, cut at the
// character budget. A failed full-text fetch falls back to the document's
// abstract and never aborts the batch. Only context cancellation is
// reported as an error.
func (h *Harvester) Harvest(ctx context.Context, docs []types.SourceDocument) (string, error) {
	texts := make([]string, len(docs))

	if h.concurrency <= 1 {
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			texts[i] = h.documentText(ctx, doc)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(h.concurrency)
		for i, doc := range docs {
			g.Go(func() error {
				texts[i] = h.documentText(ctx, doc)
				return nil
			})
		}
		g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, doc := range docs {
		b.WriteString(ProvenanceHeader(doc))
		b.WriteString("\n")
		b.WriteString(texts[i])
		b.WriteString("\n\n")
	}

	return Truncate(b.String(), h.maxChars), nil
}

// documentText prefers the extracted full text and falls back to the
// abstract (or title) when there is none or the fetch fails.
func (h *Harvester) documentText(ctx context.Context, doc types.SourceDocument) string {
	if doc.FullTextRef == "" || h.fetcher == nil {
		return doc.FallbackText()
	}

	text, err := h.fetcher.FetchFullText(ctx, doc.FullTextRef)
	if err != nil {
		h.log.Warn("full text unavailable, using abstract",
			zap.String("document", doc.ID),
			zap.String("title", doc.Title),
			zap.Error(err))
		return doc.FallbackText()
	}
	if strings.TrimSpace(text) == "" {
		h.log.Debug("empty full text, using abstract", zap.String("document", doc.ID))
		return doc.FallbackText()
	}
	return text
}

// ProvenanceHeader tags a document block with its title and id so the model
// can attribute claims.
func ProvenanceHeader(doc types.SourceDocument) string {
	return fmt.Sprintf("--- SOURCE: %s (ID: %s) ---", doc.Title, doc.ID)
}

// Truncate cuts s to at most max characters. The cut is not sentence-aware.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
