// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/httputil"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "deck-engine/1.0"

	// maxResponseBytes bounds a decoded response body.
	maxResponseBytes = 64 << 20
)

// Client calls the backend over HTTP.
type Client struct {
	baseURL    string
	http       *http.Client
	userAgent  string
	maxRetries int
	log        *zap.Logger
}

// NewClient creates a Client for cfg.URL.
func NewClient(cfg types.BackendConfig, log *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend url is not configured")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.URL,
		http:       &http.Client{Timeout: timeout},
		userAgent:  ua,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}, nil
}

// post sends body and decodes the envelope, retrying on 429 and 503.
func (c *Client) post(ctx context.Context, body any) (Envelope, error) {
	req, err := c.newPost(ctx, body)
	if err != nil {
		return Envelope{}, err
	}
	return c.do(ctx, req, true)
}

// postOnce sends body exactly once.
func (c *Client) postOnce(ctx context.Context, body any) (Envelope, error) {
	req, err := c.newPost(ctx, body)
	if err != nil {
		return Envelope{}, err
	}
	return c.do(ctx, req, false)
}

func (c *Client) newPost(ctx context.Context, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// get sends an action with query parameters and decodes the envelope.
func (c *Client) get(ctx context.Context, params url.Values) (Envelope, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Envelope{}, fmt.Errorf("parsing backend url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Envelope{}, fmt.Errorf("creating request: %w", err)
	}
	return c.do(ctx, req, true)
}

// do executes req. A response only counts as success when the envelope
// says so; anything else is ErrRejected or a transport error.
func (c *Client) do(ctx context.Context, req *http.Request, retry bool) (Envelope, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	var err error
	if retry {
		resp, err = httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.log)
	} else {
		resp, err = c.http.Do(req)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Envelope{}, fmt.Errorf("reading response: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: HTTP %d with undecodable body", ErrRejected, resp.StatusCode)
	}
	if env.Status != StatusSuccess {
		msg := env.Message
		if msg == "" {
			msg = "status " + strconv.Quote(env.Status)
		}
		return env, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return env, nil
}

func decodeData[T any](env Envelope, what string) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, fmt.Errorf("%w: %s response has no data", ErrRejected, what)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", what, err)
	}
	return v, nil
}

func decodePage[T any](env Envelope, what string) (types.Page[T], error) {
	items := []T{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return types.Page[T]{}, fmt.Errorf("decoding %s: %w", what, err)
		}
	}
	total := len(items)
	if env.TotalCount != nil {
		total = *env.TotalCount
	}
	return types.Page[T]{Items: items, TotalCount: total}, nil
}

// listParams renders a ListQuery as query parameters.
func listParams(act string, q types.ListQuery) url.Values {
	v := url.Values{"action": {act}}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("collectionId", q.CollectionID)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	set("search", q.Search)
	set("sortKey", q.SortKey)
	set("sortDir", q.SortDir)
	set("startDate", q.StartDate)
	set("endDate", q.EndDate)
	set("bloomFilter", q.BloomFilter)
	return v
}

// FetchFullText returns the extracted full text behind ref.
func (c *Client) FetchFullText(ctx context.Context, ref string) (string, error) {
	env, err := c.get(ctx, url.Values{"action": {ActionGetFileContent}, "id": {ref}})
	if err != nil {
		return "", err
	}
	fc, err := decodeData[FileContent](env, "file content")
	if err != nil {
		return "", err
	}
	return fc.FullText, nil
}

// Documents returns library documents by id, in order. No ids returns the
// whole library.
func (c *Client) Documents(ctx context.Context, ids []string) ([]types.SourceDocument, error) {
	params := url.Values{"action": {ActionGetDocuments}}
	if len(ids) > 0 {
		params.Set("ids", strings.Join(ids, ","))
	}
	env, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return decodeData[[]types.SourceDocument](env, "documents")
}

// SavePresentation sends a draft record with its base64 artifact and returns
// the record the backend stored.
func (c *Client) SavePresentation(ctx context.Context, draft types.PresentationRecord, artifactData string, format types.ExportFormat) (types.PresentationRecord, error) {
	env, err := c.post(ctx, SavePresentationRequest{
		Action:         ActionSavePresentation,
		Presentation:   draft,
		ArtifactData:   artifactData,
		ArtifactFormat: format,
	})
	if err != nil {
		return types.PresentationRecord{}, err
	}
	return decodeData[types.PresentationRecord](env, "presentation")
}

// DeletePresentation removes a presentation record.
func (c *Client) DeletePresentation(ctx context.Context, id string) error {
	_, err := c.post(ctx, DeleteRequest{Action: ActionDeletePresentation, ID: id})
	return err
}

// ListPresentations fetches one page. A query with a collection lists the
// presentations related to it; otherwise all presentations.
func (c *Client) ListPresentations(ctx context.Context, q types.ListQuery) (types.Page[types.PresentationRecord], error) {
	act := ActionGetAllPresentations
	if q.CollectionID != "" {
		act = ActionGetRelatedPresentations
	}
	env, err := c.get(ctx, listParams(act, q))
	if err != nil {
		return types.Page[types.PresentationRecord]{}, err
	}
	return decodePage[types.PresentationRecord](env, "presentations")
}

// SaveQuestion stores a question and returns the stored record.
func (c *Client) SaveQuestion(ctx context.Context, rec types.QuestionRecord) (types.QuestionRecord, error) {
	env, err := c.post(ctx, SaveQuestionRequest{Action: ActionSaveQuestion, Question: rec})
	if err != nil {
		return types.QuestionRecord{}, err
	}
	return decodeData[types.QuestionRecord](env, "question")
}

// DeleteQuestion removes a question record.
func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	_, err := c.post(ctx, DeleteRequest{Action: ActionDeleteQuestion, ID: id})
	return err
}

// ListQuestions fetches one page of questions, for one collection or all.
func (c *Client) ListQuestions(ctx context.Context, q types.ListQuery) (types.Page[types.QuestionRecord], error) {
	act := ActionGetAllQuestions
	if q.CollectionID != "" {
		act = ActionGetQuestions
	}
	env, err := c.get(ctx, listParams(act, q))
	if err != nil {
		return types.Page[types.QuestionRecord]{}, err
	}
	return decodePage[types.QuestionRecord](env, "questions")
}

// Generate implements llm.Generator through the backend's aiProxy action.
// A generation is sent once; a busy or failing backend is not retried.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	env, err := c.postOnce(ctx, AIProxyRequest{Action: ActionAIProxy, Provider: req.Provider, Prompt: req.Prompt})
	if err != nil {
		return "", err
	}
	if len(env.Data) == 0 {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(env.Data, &text); err != nil {
		return "", fmt.Errorf("decoding generation: %w", err)
	}
	return text, nil
}
