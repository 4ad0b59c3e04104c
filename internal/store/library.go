// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// LibraryEntry is one document in a library import file. Full text may be
// given inline or as a path relative to the import file.
type LibraryEntry struct {
	types.SourceDocument `yaml:",inline"`

	FullText     string `yaml:"full_text,omitempty"`
	FullTextFile string `yaml:"full_text_file,omitempty"`
}

// ImportSummary holds counts from a library import.
type ImportSummary struct {
	Imported int
	Failed   int
}

// ImportLibrary reads a YAML list of LibraryEntry from path and upserts each
// document. A bad entry is reported to w and skipped.
func (s *Store) ImportLibrary(ctx context.Context, path string, w io.Writer) (ImportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reading library file %s: %w", path, err)
	}
	var entries []LibraryEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return ImportSummary{}, fmt.Errorf("parsing library file %s: %w", path, err)
	}

	var summary ImportSummary
	base := filepath.Dir(path)
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if e.ID == "" || e.Title == "" {
			fmt.Fprintf(w, "failed   %q: id and title are required\n", e.ID)
			summary.Failed++
			continue
		}

		text := e.FullText
		if e.FullTextFile != "" {
			p := e.FullTextFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, p)
			}
			raw, err := os.ReadFile(p)
			if err != nil {
				fmt.Fprintf(w, "failed   %s: %v\n", e.ID, err)
				summary.Failed++
				continue
			}
			text = string(raw)
		}

		if err := s.UpsertDocument(ctx, e.SourceDocument, text); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", e.ID, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "imported %s (%d chars full text)\n", e.ID, len([]rune(text)))
		summary.Imported++
	}

	fmt.Fprintf(w, "\nimported: %d, failed: %d\n", summary.Imported, summary.Failed)
	return summary, nil
}
