// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

var presentationSort = map[string]string{
	"title":       "title",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"slidesCount": "slide_count",
}

// SavePresentation inserts or replaces a presentation record and its
// collection links.
func (s *Store) SavePresentation(ctx context.Context, rec types.PresentationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO presentations (id, title, presenters, theme, slide_count, artifact_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, presenters=excluded.presenters, theme=excluded.theme,
			slide_count=excluded.slide_count, artifact_key=excluded.artifact_key,
			updated_at=excluded.updated_at`,
		rec.ID, rec.Title, encodeJSON(rec.Presenters), encodeJSON(rec.Theme), rec.SlideCount,
		rec.ArtifactKey, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting presentation %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM presentation_collections WHERE presentation_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clearing collections: %w", err)
	}
	for i, cid := range rec.CollectionIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO presentation_collections (presentation_id, collection_id, position) VALUES (?, ?, ?)`,
			rec.ID, cid, i)
		if err != nil {
			return fmt.Errorf("linking collection %s: %w", cid, err)
		}
	}
	return tx.Commit()
}

// DeletePresentation removes a presentation record.
func (s *Store) DeletePresentation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting presentation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("presentation %s: %w", id, ErrNotFound)
	}
	return nil
}

const presentationColumns = `id, title, presenters, theme, slide_count, COALESCE(artifact_key, ''), created_at, updated_at`

func scanPresentation(row interface{ Scan(...any) error }) (types.PresentationRecord, error) {
	var (
		rec                  types.PresentationRecord
		presenters, theme    sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.Title, &presenters, &theme, &rec.SlideCount, &rec.ArtifactKey, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	if presenters.Valid {
		_ = json.Unmarshal([]byte(presenters.String), &rec.Presenters)
	}
	if theme.Valid {
		_ = json.Unmarshal([]byte(theme.String), &rec.Theme)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

// GetPresentation returns one presentation record.
func (s *Store) GetPresentation(ctx context.Context, id string) (types.PresentationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+presentationColumns+` FROM presentations WHERE id = ?`, id)
	rec, err := scanPresentation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("presentation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("reading presentation %s: %w", id, err)
	}
	recs := []types.PresentationRecord{rec}
	if err := s.loadCollections(ctx, recs); err != nil {
		return rec, err
	}
	return recs[0], nil
}

// ListPresentations returns one page of presentations matching q. An empty
// CollectionID lists every presentation.
func (s *Store) ListPresentations(ctx context.Context, q types.ListQuery) (types.Page[types.PresentationRecord], error) {
	var w where
	if q.CollectionID != "" {
		w.add(`id IN (SELECT presentation_id FROM presentation_collections WHERE collection_id = ?)`, q.CollectionID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		w.add(`title LIKE ? ESCAPE '\'`, likePattern(term))
	}
	if err := w.dateRange(q); err != nil {
		return types.Page[types.PresentationRecord]{}, err
	}

	page := types.Page[types.PresentationRecord]{Items: []types.PresentationRecord{}}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM presentations`+w.String(), w.args...).Scan(&page.TotalCount); err != nil {
		return page, fmt.Errorf("counting presentations: %w", err)
	}

	limit, offset := limitOffset(q)
	query := `SELECT ` + presentationColumns + ` FROM presentations` + w.String() + orderBy(q, presentationSort) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return page, fmt.Errorf("listing presentations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanPresentation(rows)
		if err != nil {
			return page, fmt.Errorf("scanning presentation: %w", err)
		}
		page.Items = append(page.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("iterating presentations: %w", err)
	}
	if err := s.loadCollections(ctx, page.Items); err != nil {
		return page, err
	}
	return page, nil
}

// loadCollections fills CollectionIDs in link order.
func (s *Store) loadCollections(ctx context.Context, recs []types.PresentationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	index := make(map[string]int, len(recs))
	placeholders := make([]string, len(recs))
	args := make([]any, len(recs))
	for i, r := range recs {
		index[r.ID] = i
		placeholders[i] = "?"
		args[i] = r.ID
		recs[i].CollectionIDs = []string{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT presentation_id, collection_id FROM presentation_collections
		 WHERE presentation_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY presentation_id, position`, args...)
	if err != nil {
		return fmt.Errorf("loading collections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid, cid string
		if err := rows.Scan(&pid, &cid); err != nil {
			return fmt.Errorf("scanning collection link: %w", err)
		}
		i := index[pid]
		recs[i].CollectionIDs = append(recs[i].CollectionIDs, cid)
	}
	return rows.Err()
}
