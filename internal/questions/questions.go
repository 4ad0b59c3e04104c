// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package questions drafts question-bank entries from a document with a
// generation provider and saves each one through the backend.
package questions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/blueprint"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	// DefaultCount is the number of questions requested when none is given.
	DefaultCount = 5
	// MaxCount caps one generation request.
	MaxCount = 25
)

var (
	// ErrNoQuestions means the response held no usable question.
	ErrNoQuestions = errors.New("no usable questions in response")
	// ErrInvalidRequest means the generation request itself is unusable.
	ErrInvalidRequest = errors.New("invalid question request")
)

// Levels lists the cognitive levels in ascending order.
var Levels = []types.BloomLevel{
	types.BloomRemember,
	types.BloomUnderstand,
	types.BloomApply,
	types.BloomAnalyze,
	types.BloomEvaluate,
	types.BloomCreate,
}

// ValidLevel reports whether l is one of Levels.
func ValidLevel(l types.BloomLevel) bool {
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}

// Request describes one generation run.
type Request struct {
	CollectionID string
	Document     types.SourceDocument
	BloomLevel   types.BloomLevel
	Count        int
	Context      string
	Language     string
	Provider     string
}

// SaveFunc stores one draft and returns the record the backend confirmed.
type SaveFunc func(ctx context.Context, draft types.QuestionRecord) (types.QuestionRecord, error)

var questionPromptTmpl = template.Must(template.New("questions").Parse(`ACT AS AN EXPERT ASSESSMENT DESIGNER.
TASK: WRITE {{.Count}} EXAM QUESTIONS IN {{.Language}} ABOUT THE DOCUMENT BELOW.

--- COGNITIVE LEVEL ---
Every question targets Bloom level {{.Level}}.
{{if .Context}}
--- ADDITIONAL INSTRUCTIONS ---
{{.Context}}
{{end}}
--- MANDATORY JSON RULES ---
1. RETURN A ROOT OBJECT WITH "questions" (array).
2. EACH ITEM HAS "questionText", "correctAnswer", "explanation", AND "bloomLevel".
3. ANSWERS MUST BE SUPPORTED BY THE DOCUMENT.
4. NO CONVERSATION. ONLY RAW JSON.

DOCUMENT:
{{.Text}}

SCHEMA_TEMPLATE:
{
  "questions": [
    { "questionText": "...", "correctAnswer": "...", "explanation": "...", "bloomLevel": "{{.Level}}" }
  ]
}
`))

// Generator drafts and saves questions.
type Generator struct {
	gen       llm.Generator
	harvester *harvest.Harvester
	ctrl      *mutation.Controller[types.QuestionRecord]
	save      SaveFunc
	log       *zap.Logger
}

// New creates a Generator. Confirmed records are announced through ctrl.
func New(gen llm.Generator, harvester *harvest.Harvester, ctrl *mutation.Controller[types.QuestionRecord], save SaveFunc, log *zap.Logger) *Generator {
	if harvester == nil {
		harvester = harvest.New(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{gen: gen, harvester: harvester, ctrl: ctrl, save: save, log: log}
}

// normalize fills defaults and rejects unusable requests.
func normalize(req Request) (Request, error) {
	if req.CollectionID == "" {
		req.CollectionID = req.Document.ID
	}
	if req.CollectionID == "" {
		return req, fmt.Errorf("%w: no collection", ErrInvalidRequest)
	}
	if req.BloomLevel == "" {
		req.BloomLevel = types.BloomRemember
	}
	if !ValidLevel(req.BloomLevel) {
		return req, fmt.Errorf("%w: unknown bloom level %q", ErrInvalidRequest, req.BloomLevel)
	}
	if req.Count <= 0 {
		req.Count = DefaultCount
	}
	req.Count = min(req.Count, MaxCount)
	if req.Language == "" {
		req.Language = "English"
	}
	return req, nil
}

// RenderPrompt builds the generation instruction for req over the document
// text.
func RenderPrompt(req Request, text string) (string, error) {
	data := struct {
		Count    int
		Language string
		Level    types.BloomLevel
		Context  string
		Text     string
	}{req.Count, req.Language, req.BloomLevel, strings.TrimSpace(req.Context), text}

	var b bytes.Buffer
	if err := questionPromptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering question prompt: %w", err)
	}
	return b.String(), nil
}

// Draft asks the provider for questions and returns unsaved records.
func (g *Generator) Draft(ctx context.Context, req Request) ([]types.QuestionRecord, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	text, err := g.harvester.Harvest(ctx, []types.SourceDocument{req.Document})
	if err != nil {
		return nil, err
	}
	prompt, err := RenderPrompt(req, text)
	if err != nil {
		return nil, err
	}

	g.log.Info("requesting questions",
		zap.String("document", req.Document.ID),
		zap.String("bloom", string(req.BloomLevel)),
		zap.Int("count", req.Count))

	raw, err := g.gen.Generate(ctx, llm.Request{Provider: req.Provider, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}
	root, err := blueprint.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}

	drafts := ParseDrafts(root, req)
	if len(drafts) == 0 {
		return nil, ErrNoQuestions
	}
	return drafts, nil
}

// ParseDrafts maps a parsed response to drafts. The items may sit under
// "questions" or "data", or be the root array. Items without question text
// are dropped, an unknown level falls back to the requested one, and at most
// req.Count drafts are returned.
func ParseDrafts(root gjson.Result, req Request) []types.QuestionRecord {
	items := root
	if !root.IsArray() {
		items = root.Get("questions")
		if !items.IsArray() {
			items = root.Get("data")
		}
	}

	var drafts []types.QuestionRecord
	for _, item := range items.Array() {
		if len(drafts) == req.Count {
			break
		}
		q := strings.TrimSpace(firstString(item, "questionText", "question"))
		if q == "" {
			continue
		}
		level := types.BloomLevel(strings.TrimSpace(item.Get("bloomLevel").String()))
		if !ValidLevel(level) {
			level = req.BloomLevel
		}
		drafts = append(drafts, types.QuestionRecord{
			CollectionID: req.CollectionID,
			BloomLevel:   level,
			Question:     q,
			Answer:       strings.TrimSpace(firstString(item, "correctAnswer", "answer")),
			Explanation:  strings.TrimSpace(item.Get("explanation").String()),
			Language:     req.Language,
		})
	}
	return drafts
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

// Generate drafts questions and saves each one. Every confirmed record is
// announced as it is saved; a rejected save is skipped and reported in the
// joined error alongside the records that did save.
func (g *Generator) Generate(ctx context.Context, req Request) ([]types.QuestionRecord, error) {
	drafts, err := g.Draft(ctx, req)
	if err != nil {
		return nil, err
	}

	var saved []types.QuestionRecord
	var errs []error
	for i, d := range drafts {
		rec, err := g.ctrl.Save(ctx, func(ctx context.Context) (types.QuestionRecord, error) {
			return g.save(ctx, d)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("saving question %d: %w", i+1, err))
			continue
		}
		saved = append(saved, rec)
	}
	g.log.Info("questions saved", zap.Int("saved", len(saved)), zap.Int("drafted", len(drafts)))
	return saved, errors.Join(errs...)
}
