// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// maxBodyBytes bounds a POST body; artifacts travel inside it as base64.
const maxBodyBytes = 128 << 20

// HTTPServer exposes a Service over the action protocol.
type HTTPServer struct {
	service *Service
	log     *zap.Logger
}

// NewHTTPServer creates an HTTPServer.
func NewHTTPServer(service *Service, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPServer{service: service, log: log}
}

// Handler returns the HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	act := params.Get("action")

	switch act {
	case ActionGetAllPresentations, ActionGetRelatedPresentations:
		q, err := parseListQuery(params)
		if err != nil {
			s.fail(w, act, err)
			return
		}
		if act == ActionGetRelatedPresentations && q.CollectionID == "" {
			s.fail(w, act, invalid("collectionId is required"))
			return
		}
		page, err := s.service.ListPresentations(ctx, q)
		if err != nil {
			s.fail(w, act, err)
			return
		}
		writePage(w, page.Items, page.TotalCount)

	case ActionGetAllQuestions, ActionGetQuestions:
		q, err := parseListQuery(params)
		if err != nil {
			s.fail(w, act, err)
			return
		}
		if act == ActionGetQuestions && q.CollectionID == "" {
			s.fail(w, act, invalid("collectionId is required"))
			return
		}
		page, err := s.service.ListQuestions(ctx, q)
		if err != nil {
			s.fail(w, act, err)
			return
		}
		writePage(w, page.Items, page.TotalCount)

	case ActionGetFileContent:
		text, err := s.service.FullText(ctx, params.Get("id"))
		if err != nil {
			s.fail(w, act, err)
			return
		}
		writeData(w, FileContent{FullText: text})

	case ActionGetDocuments:
		var ids []string
		if raw := params.Get("ids"); raw != "" {
			ids = strings.Split(raw, ",")
		}
		docs, err := s.service.Documents(ctx, ids)
		if err != nil {
			s.fail(w, act, err)
			return
		}
		writeData(w, docs)

	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", act))
	}
}

func (s *HTTPServer) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var a action
	if err := json.Unmarshal(raw, &a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch a.Action {
	case ActionSavePresentation:
		var req SavePresentationRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid savePresentation body")
			return
		}
		rec, err := s.service.SavePresentation(ctx, req)
		if err != nil {
			s.fail(w, a.Action, err)
			return
		}
		writeData(w, rec)

	case ActionDeletePresentation, ActionDeleteQuestion:
		var req DeleteRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		var err error
		if a.Action == ActionDeletePresentation {
			err = s.service.DeletePresentation(ctx, req.ID)
		} else {
			err = s.service.DeleteQuestion(ctx, req.ID)
		}
		if err != nil {
			s.fail(w, a.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, Envelope{Status: StatusSuccess})

	case ActionSaveQuestion:
		var req SaveQuestionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid saveQuestion body")
			return
		}
		rec, err := s.service.SaveQuestion(ctx, req.Question)
		if err != nil {
			s.fail(w, a.Action, err)
			return
		}
		writeData(w, rec)

	case ActionAIProxy:
		var req AIProxyRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid aiProxy body")
			return
		}
		text, err := s.service.Generate(ctx, req.Provider, req.Prompt)
		if err != nil {
			s.fail(w, a.Action, err)
			return
		}
		writeData(w, text)

	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", a.Action))
	}
}

// fail maps a service error to an HTTP status and error envelope.
func (s *HTTPServer) fail(w http.ResponseWriter, act string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalid), errors.Is(err, store.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoGenerator):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		s.log.Error("action failed", zap.String("action", act), zap.Error(err))
	} else {
		s.log.Debug("action refused", zap.String("action", act), zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// parseListQuery reads list parameters. Non-numeric page or limit is an
// error; missing ones are left zero for the store to default.
func parseListQuery(v map[string][]string) (types.ListQuery, error) {
	get := func(k string) string {
		if vs := v[k]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}
	q := types.ListQuery{
		CollectionID: get("collectionId"),
		Search:       get("search"),
		SortKey:      get("sortKey"),
		SortDir:      get("sortDir"),
		StartDate:    get("startDate"),
		EndDate:      get("endDate"),
		BloomFilter:  get("bloomFilter"),
	}
	var err error
	if p := get("page"); p != "" {
		if q.Page, err = strconv.Atoi(p); err != nil {
			return q, invalid("page must be a number")
		}
	}
	if l := get("limit"); l != "" {
		if q.Limit, err = strconv.Atoi(l); err != nil {
			return q, invalid("limit must be a number")
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: StatusError, Message: message})
}

func writeData(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response")
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Data: data})
}

func writePage[T any](w http.ResponseWriter, items []T, total int) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response")
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Data: data, TotalCount: &total})
}
