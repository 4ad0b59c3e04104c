// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deck-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "db", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC)
}

func TestDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, types.SourceDocument{
		ID: "d1", Title: "Beta", Abstract: "abs", Authors: []string{"A", "B"}, Year: "2021", Publisher: "P",
	}, "full body"))
	require.NoError(t, s.UpsertDocument(ctx, types.SourceDocument{ID: "d2", Title: "Alpha"}, ""))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, types.SourceDocument{
		ID: "d1", Title: "Beta", Abstract: "abs", FullTextRef: "d1",
		Authors: []string{"A", "B"}, Year: "2021", Publisher: "P",
	}, doc)

	text, err := s.FullText(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "full body", text)

	_, err = s.FullText(ctx, "d2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.Documents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Title)
	assert.Empty(t, all[0].FullTextRef)

	picked, err := s.Documents(ctx, []string{"d2", "d1"})
	require.NoError(t, err)
	assert.Equal(t, "d2", picked[0].ID)
	assert.Equal(t, "d1", picked[1].ID)

	_, err = s.Documents(ctx, []string{"d1", "gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPresentations_SaveGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := types.PresentationRecord{
		ID:            "p1",
		CollectionIDs: []string{"c2", "c1"},
		Title:         "Deck",
		Presenters:    []string{"Ana"},
		Theme:         types.Theme{Name: "midnight", PrimaryColor: "#000"},
		SlideCount:    5,
		ArtifactKey:   "presentations/p1.html",
		CreatedAt:     day(1),
		UpdatedAt:     day(2),
	}
	require.NoError(t, s.SavePresentation(ctx, rec))

	got, err := s.GetPresentation(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	rec.CollectionIDs = []string{"c3"}
	rec.Title = "Renamed"
	require.NoError(t, s.SavePresentation(ctx, rec))
	got, err = s.GetPresentation(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, got.CollectionIDs)
	assert.Equal(t, "Renamed", got.Title)

	require.NoError(t, s.DeletePresentation(ctx, "p1"))
	_, err = s.GetPresentation(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePresentation(ctx, "p1"), ErrNotFound)
}

func seedPresentations(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for i, p := range []struct {
		id, title, col string
	}{
		{"p1", "Solar 100% review", "c1"},
		{"p2", "Wind outlook", "c1"},
		{"p3", "Solar markets", "c2"},
		{"p4", "Hydro", "c1"},
	} {
		require.NoError(t, s.SavePresentation(ctx, types.PresentationRecord{
			ID: p.id, Title: p.title, CollectionIDs: []string{p.col}, SlideCount: i + 3,
			CreatedAt: day(i + 1), UpdatedAt: day(i + 1),
		}))
	}
}

func listIDs(items []types.PresentationRecord) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestListPresentations(t *testing.T) {
	s := newTestStore(t)
	seedPresentations(t, s)
	ctx := context.Background()

	tests := []struct {
		name      string
		q         types.ListQuery
		wantIDs   []string
		wantTotal int
	}{
		{"default newest first", types.ListQuery{}, []string{"p4", "p3", "p2", "p1"}, 4},
		{"collection", types.ListQuery{CollectionID: "c1"}, []string{"p4", "p2", "p1"}, 3},
		{"search", types.ListQuery{Search: "solar"}, []string{"p3", "p1"}, 2},
		{"search escapes wildcard", types.ListQuery{Search: "100%"}, []string{"p1"}, 1},
		{"sort by title asc", types.ListQuery{SortKey: "title", SortDir: "asc"}, []string{"p4", "p1", "p3", "p2"}, 4},
		{"sort by slides desc", types.ListQuery{SortKey: "slidesCount", SortDir: "DESC"}, []string{"p4", "p3", "p2", "p1"}, 4},
		{"unknown sort key", types.ListQuery{SortKey: "title; DROP TABLE x"}, []string{"p4", "p3", "p2", "p1"}, 4},
		{"paging", types.ListQuery{Page: 2, Limit: 3}, []string{"p1"}, 4},
		{"date range inclusive", types.ListQuery{StartDate: "2026-03-02", EndDate: "2026-03-03"}, []string{"p3", "p2"}, 2},
		{"empty page", types.ListQuery{Page: 9}, []string{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListPresentations(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, listIDs(page.Items))
			assert.Equal(t, tt.wantTotal, page.TotalCount)
		})
	}
}

func TestListPresentations_BadDate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ListPresentations(context.Background(), types.ListQuery{StartDate: "03/01/2026"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorContains(t, err, "startDate")
}

func TestQuestions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	qs := []types.QuestionRecord{
		{ID: "q1", CollectionID: "c1", BloomLevel: types.BloomRemember, Question: "What is X?", Answer: "X", CreatedAt: day(1), UpdatedAt: day(1)},
		{ID: "q2", CollectionID: "c1", BloomLevel: types.BloomAnalyze, Question: "Compare Y", Answer: "Y", Explanation: "because", Language: "English", CreatedAt: day(2), UpdatedAt: day(2)},
		{ID: "q3", CollectionID: "c2", BloomLevel: types.BloomAnalyze, Question: "Why Z?", Answer: "Z", CreatedAt: day(3), UpdatedAt: day(3)},
	}
	for _, q := range qs {
		require.NoError(t, s.SaveQuestion(ctx, q))
	}

	got, err := s.GetQuestion(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, qs[1], got)

	page, err := s.ListQuestions(ctx, types.ListQuery{CollectionID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "q2", page.Items[0].ID)

	page, err = s.ListQuestions(ctx, types.ListQuery{BloomFilter: string(types.BloomAnalyze)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)

	page, err = s.ListQuestions(ctx, types.ListQuery{BloomFilter: "All", Search: "why"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "q3", page.Items[0].ID)

	require.NoError(t, s.DeleteQuestion(ctx, "q3"))
	assert.ErrorIs(t, s.DeleteQuestion(ctx, "q3"), ErrNotFound)
	_, err = s.GetQuestion(ctx, "q3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportLibrary(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d1.txt"), []byte("long text"), 0o644))
	lib := `
- id: d1
  title: First
  authors: [Ana, Ben]
  year: "2020"
  full_text_file: d1.txt
- id: d2
  title: Second
  abstract: short
  full_text: inline body
- id: d3
  title: Broken
  full_text_file: missing.txt
- title: No id
`
	path := filepath.Join(dir, "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lib), 0o644))

	var out bytes.Buffer
	summary, err := s.ImportLibrary(context.Background(), path, &out)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Imported: 2, Failed: 2}, summary)
	assert.Contains(t, out.String(), "imported d1")
	assert.Contains(t, out.String(), "failed   d3")

	text, err := s.FullText(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "long text", text)
	doc, err := s.GetDocument(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Ben"}, doc.Authors)

	text, err = s.FullText(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, "inline body", text)
}
