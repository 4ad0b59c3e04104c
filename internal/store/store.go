// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the backend's library documents, presentation
// records, and question records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPath is the database file used when none is configured.
const DefaultPath = "data/deck-engine.db"

// timeLayout keeps stored timestamps lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the backend SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			authors TEXT,
			year TEXT,
			publisher TEXT,
			full_text TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS presentations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			presenters TEXT,
			theme TEXT,
			slide_count INTEGER NOT NULL,
			artifact_key TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS presentation_collections (
			presentation_id TEXT NOT NULL REFERENCES presentations(id) ON DELETE CASCADE,
			collection_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (presentation_id, collection_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pc_collection ON presentation_collections(collection_id)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			bloom_level TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			explanation TEXT,
			language TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_collection ON questions(collection_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// UpsertDocument inserts or replaces a library document and its full text.
func (s *Store) UpsertDocument(ctx context.Context, doc types.SourceDocument, fullText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, abstract, authors, year, publisher, full_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
			year=excluded.year, publisher=excluded.publisher, full_text=excluded.full_text`,
		doc.ID, doc.Title, doc.Abstract, encodeJSON(doc.Authors), doc.Year, doc.Publisher, fullText,
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

const documentColumns = `id, title, abstract, authors, year, publisher, COALESCE(full_text, '') <> ''`

func scanDocument(row interface{ Scan(...any) error }) (types.SourceDocument, error) {
	var (
		doc         types.SourceDocument
		abstract    sql.NullString
		authors     sql.NullString
		year        sql.NullString
		publisher   sql.NullString
		hasFullText bool
	)
	if err := row.Scan(&doc.ID, &doc.Title, &abstract, &authors, &year, &publisher, &hasFullText); err != nil {
		return doc, err
	}
	doc.Abstract = abstract.String
	doc.Year = year.String
	doc.Publisher = publisher.String
	if authors.Valid {
		_ = json.Unmarshal([]byte(authors.String), &doc.Authors)
	}
	if hasFullText {
		doc.FullTextRef = doc.ID
	}
	return doc, nil
}

// GetDocument returns one library document. FullTextRef is set when the
// document has stored full text.
func (s *Store) GetDocument(ctx context.Context, id string) (types.SourceDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("reading document %s: %w", id, err)
	}
	return doc, nil
}

// Documents returns the documents with the given ids in the given order. An
// empty list returns every document ordered by title.
func (s *Store) Documents(ctx context.Context, ids []string) ([]types.SourceDocument, error) {
	if len(ids) == 0 {
		rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY title, id`)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		defer rows.Close()
		var docs []types.SourceDocument
		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				return nil, fmt.Errorf("scanning document: %w", err)
			}
			docs = append(docs, doc)
		}
		return docs, rows.Err()
	}

	docs := make([]types.SourceDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FullText returns the stored full text of a document.
func (s *Store) FullText(ctx context.Context, id string) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT full_text FROM documents WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && text.String == "") {
		return "", fmt.Errorf("full text %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading full text %s: %w", id, err)
	}
	return text.String, nil
}
