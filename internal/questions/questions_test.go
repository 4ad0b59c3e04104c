// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/deck-engine/internal/blueprint"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

type fakeFetcher map[string]string

func (f fakeFetcher) FetchFullText(_ context.Context, ref string) (string, error) {
	if text, ok := f[ref]; ok {
		return text, nil
	}
	return "", errors.New("extraction service down")
}

type rig struct {
	gen      *Generator
	prompts  []string
	requests []llm.Request
	drafts   []types.QuestionRecord
	events   []types.QuestionRecord
	failures []string
}

// newRig wires a Generator whose save rejects any draft whose question text
// contains reject.
func newRig(t *testing.T, response string, genErr error, reject string) *rig {
	t.Helper()
	r := &rig{}
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		r.requests = append(r.requests, req)
		r.prompts = append(r.prompts, req.Prompt)
		return response, genErr
	})

	topic := syncbus.NewTopic[types.QuestionRecord](syncbus.EntityQuestion, nil, nil)
	topic.Subscribe(syncbus.Handler[types.QuestionRecord]{
		OnUpdated: func(rec types.QuestionRecord) { r.events = append(r.events, rec) },
	})
	ctrl := mutation.NewController(topic, mutation.NotifierFunc(func(op string, _ error) {
		r.failures = append(r.failures, op)
	}))

	save := func(_ context.Context, d types.QuestionRecord) (types.QuestionRecord, error) {
		r.drafts = append(r.drafts, d)
		if reject != "" && strings.Contains(d.Question, reject) {
			return types.QuestionRecord{}, errors.New("quota exceeded")
		}
		rec := d
		rec.ID = fmt.Sprintf("q-%d", len(r.drafts))
		return rec, nil
	}

	r.gen = New(gen, harvest.New(fakeFetcher{"ref-1": "MITOCHONDRIA FULL TEXT"}), ctrl, save, nil)
	return r
}

var doc = types.SourceDocument{ID: "doc-1", Title: "Cell Biology", Abstract: "abstract only", FullTextRef: "ref-1"}

const response = "```json\n" + `{"questions":[
  {"questionText":"What produces ATP?","correctAnswer":"Mitochondria","explanation":"Cellular respiration.","bloomLevel":"C1_REMEMBER"},
  {"questionText":"Why do muscle cells hold many mitochondria?","correctAnswer":"High energy demand","bloomLevel":"C4_ANALYZE"},
]}` + "\n```"

func TestGenerate_SavesAndAnnouncesEachQuestion(t *testing.T) {
	r := newRig(t, response, nil, "")

	saved, err := r.gen.Generate(context.Background(), Request{
		Document:   doc,
		BloomLevel: types.BloomRemember,
		Count:      2,
		Context:    "Focus on energy.",
		Language:   "Indonesian",
		Provider:   "anthropic",
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "q-1", saved[0].ID)
	assert.Equal(t, "doc-1", saved[0].CollectionID)
	assert.Equal(t, "Mitochondria", saved[0].Answer)
	assert.Equal(t, "Cellular respiration.", saved[0].Explanation)
	assert.Equal(t, "Indonesian", saved[0].Language)
	assert.Equal(t, types.BloomAnalyze, saved[1].BloomLevel)

	assert.Equal(t, saved, r.events, "each confirmed record is announced")
	assert.Empty(t, r.failures)

	require.Len(t, r.requests, 1)
	assert.Equal(t, "anthropic", r.requests[0].Provider)
	prompt := r.prompts[0]
	assert.Contains(t, prompt, "WRITE 2 EXAM QUESTIONS IN Indonesian")
	assert.Contains(t, prompt, "Bloom level C1_REMEMBER")
	assert.Contains(t, prompt, "Focus on energy.")
	assert.Contains(t, prompt, "MITOCHONDRIA FULL TEXT")
	assert.Contains(t, prompt, "--- SOURCE: Cell Biology (ID: doc-1) ---")
}

func TestGenerate_RejectedSaveIsNotAnnounced(t *testing.T) {
	r := newRig(t, response, nil, "muscle")

	saved, err := r.gen.Generate(context.Background(), Request{Document: doc, Count: 5})
	require.Error(t, err)
	assert.ErrorContains(t, err, "saving question 2")
	assert.ErrorContains(t, err, "quota exceeded")

	require.Len(t, saved, 1)
	assert.Equal(t, "What produces ATP?", saved[0].Question)
	assert.Equal(t, saved, r.events)
	assert.Equal(t, []string{"save question"}, r.failures)
	assert.Len(t, r.drafts, 2)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
		req      Request
		wantErr  error
		wantCall bool
	}{
		{"generator error", "", errors.New("provider down"), Request{Document: doc}, nil, true},
		{"malformed response", `{"questions":[{"questionText":`, nil, Request{Document: doc}, blueprint.ErrMalformedBlueprint, true},
		{"no usable items", `{"questions":[{"correctAnswer":"orphan"}]}`, nil, Request{Document: doc}, ErrNoQuestions, true},
		{"unknown level", response, nil, Request{Document: doc, BloomLevel: "C9_DREAM"}, ErrInvalidRequest, false},
		{"no collection", response, nil, Request{}, ErrInvalidRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.response, tt.genErr, "")
			saved, err := r.gen.Generate(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Nil(t, saved)
			assert.Empty(t, r.drafts)
			assert.Empty(t, r.events)
			assert.Equal(t, tt.wantCall, len(r.requests) == 1)
		})
	}
}

func TestParseDrafts(t *testing.T) {
	req := Request{CollectionID: "c1", BloomLevel: types.BloomApply, Count: 2, Language: "English"}

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"root array", `[{"question":"A?"},{"questionText":"B?"}]`, []string{"A?", "B?"}},
		{"data key", `{"data":[{"questionText":"C?"}]}`, []string{"C?"}},
		{"capped at count", `{"questions":[{"questionText":"1"},{"questionText":"2"},{"questionText":"3"}]}`, []string{"1", "2"}},
		{"blank text dropped", `{"questions":[{"questionText":"  "},{"questionText":"D?"}]}`, []string{"D?"}},
		{"no items", `{"slides":[]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := ParseDrafts(gjson.Parse(tt.raw), req)
			var got []string
			for _, d := range drafts {
				got = append(got, d.Question)
				assert.Equal(t, "c1", d.CollectionID)
				assert.Equal(t, types.BloomApply, d.BloomLevel)
				assert.Empty(t, d.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	req, err := normalize(Request{Document: doc, Count: 100})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", req.CollectionID)
	assert.Equal(t, types.BloomRemember, req.BloomLevel)
	assert.Equal(t, MaxCount, req.Count)
	assert.Equal(t, "English", req.Language)

	req, err = normalize(Request{CollectionID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCount, req.Count)
}

func TestRenderPrompt_OmitsEmptyContext(t *testing.T) {
	prompt, err := RenderPrompt(Request{Count: 3, Language: "English", BloomLevel: types.BloomCreate}, "TEXT")
	require.NoError(t, err)
	assert.NotContains(t, prompt, "ADDITIONAL INSTRUCTIONS")
	assert.Contains(t, prompt, `"bloomLevel": "C6_CREATE"`)
}
