// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PresentationRecord is the persisted metadata of one synthesized deck. The
// binary artifact lives in the backend and is referenced, not embedded.
type PresentationRecord struct {
	ID            string    `json:"id" yaml:"id"`
	CollectionIDs []string  `json:"collectionIds" yaml:"collection_ids"`
	Title         string    `json:"title" yaml:"title"`
	Presenters    []string  `json:"presenters" yaml:"presenters"`
	Theme         Theme     `json:"themeConfig" yaml:"theme"`
	SlideCount    int       `json:"slidesCount" yaml:"slide_count"`
	ArtifactKey   string    `json:"artifactKey,omitempty" yaml:"artifact_key,omitempty"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"updated_at"`
}

// RecordID returns the record identifier.
func (p PresentationRecord) RecordID() string { return p.ID }

// InCollection reports whether the deck was synthesized from collectionID.
func (p PresentationRecord) InCollection(collectionID string) bool {
	for _, id := range p.CollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// BloomLevel classifies a question by cognitive level.
type BloomLevel string

const (
	BloomRemember   BloomLevel = "C1_REMEMBER"
	BloomUnderstand BloomLevel = "C2_UNDERSTAND"
	BloomApply      BloomLevel = "C3_APPLY"
	BloomAnalyze    BloomLevel = "C4_ANALYZE"
	BloomEvaluate   BloomLevel = "C5_EVALUATE"
	BloomCreate     BloomLevel = "C6_CREATE"
)

// QuestionRecord is a question-bank entry attached to a collection.
type QuestionRecord struct {
	ID           string     `json:"id" yaml:"id"`
	CollectionID string     `json:"collectionId" yaml:"collection_id"`
	BloomLevel   BloomLevel `json:"bloomLevel" yaml:"bloom_level"`
	Question     string     `json:"questionText" yaml:"question"`
	Answer       string     `json:"correctAnswer" yaml:"answer"`
	Explanation  string     `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Language     string     `json:"language,omitempty" yaml:"language,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" yaml:"updated_at"`
}

// RecordID returns the record identifier.
func (q QuestionRecord) RecordID() string { return q.ID }

// ListQuery holds the paging, search, and sort parameters of a list fetch.
// An empty CollectionID lists across all collections.
type ListQuery struct {
	CollectionID string
	Page         int
	Limit        int
	Search       string
	SortKey      string
	SortDir      string

	// StartDate and EndDate bound createdAt, formatted YYYY-MM-DD. Either may
	// be empty.
	StartDate string
	EndDate   string

	// BloomFilter restricts question listings; "" or "All" disables it.
	BloomFilter string
}

// Page is one page of a list fetch.
type Page[T any] struct {
	Items      []T `json:"data"`
	TotalCount int `json:"totalCount"`
}
