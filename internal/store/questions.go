// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

var questionSort = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"bloomLevel":   "bloom_level",
	"questionText": "question",
}

// SaveQuestion inserts or replaces a question record.
func (s *Store) SaveQuestion(ctx context.Context, rec types.QuestionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, collection_id, bloom_level, question, answer, explanation, language, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			collection_id=excluded.collection_id, bloom_level=excluded.bloom_level,
			question=excluded.question, answer=excluded.answer, explanation=excluded.explanation,
			language=excluded.language, updated_at=excluded.updated_at`,
		rec.ID, rec.CollectionID, string(rec.BloomLevel), rec.Question, rec.Answer,
		rec.Explanation, rec.Language, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting question %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteQuestion removes a question record.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting question %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return nil
}

const questionColumns = `id, collection_id, bloom_level, question, COALESCE(answer, ''), COALESCE(explanation, ''), COALESCE(language, ''), created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (types.QuestionRecord, error) {
	var (
		rec                  types.QuestionRecord
		bloom                string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.CollectionID, &bloom, &rec.Question, &rec.Answer,
		&rec.Explanation, &rec.Language, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	rec.BloomLevel = types.BloomLevel(bloom)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

// GetQuestion returns one question record.
func (s *Store) GetQuestion(ctx context.Context, id string) (types.QuestionRecord, error) {
	rec, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("reading question %s: %w", id, err)
	}
	return rec, nil
}

// ListQuestions returns one page of questions matching q. Search matches the
// question and answer text.
func (s *Store) ListQuestions(ctx context.Context, q types.ListQuery) (types.Page[types.QuestionRecord], error) {
	var w where
	if q.CollectionID != "" {
		w.add(`collection_id = ?`, q.CollectionID)
	}
	if f := strings.TrimSpace(q.BloomFilter); f != "" && !strings.EqualFold(f, "all") {
		w.add(`bloom_level = ?`, f)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		p := likePattern(term)
		w.add(`(question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\')`, p, p)
	}
	if err := w.dateRange(q); err != nil {
		return types.Page[types.QuestionRecord]{}, err
	}

	page := types.Page[types.QuestionRecord]{Items: []types.QuestionRecord{}}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM questions`+w.String(), w.args...).Scan(&page.TotalCount); err != nil {
		return page, fmt.Errorf("counting questions: %w", err)
	}

	limit, offset := limitOffset(q)
	query := `SELECT ` + questionColumns + ` FROM questions` + w.String() + orderBy(q, questionSort) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return page, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanQuestion(rows)
		if err != nil {
			return page, fmt.Errorf("scanning question: %w", err)
		}
		page.Items = append(page.Items, rec)
	}
	return page, rows.Err()
}
