// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend implements the request/response tunnel between the
// pipeline and the service that owns documents, presentations, and
// questions. Mutations are POSTed as {action, ...} JSON bodies; reads are
// GETs with an action query parameter. Every response is an Envelope.
package backend

import (
	"encoding/json"
	"errors"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Actions.
const (
	ActionSavePresentation        = "savePresentation"
	ActionDeletePresentation      = "deletePresentationRecord"
	ActionGetAllPresentations     = "getAllPresentations"
	ActionGetRelatedPresentations = "getRelatedPresentations"
	ActionSaveQuestion            = "saveQuestion"
	ActionDeleteQuestion          = "deleteQuestionRecord"
	ActionGetAllQuestions         = "getAllQuestions"
	ActionGetQuestions            = "getQuestionsByCollection"
	ActionGetFileContent          = "getFileContent"
	ActionGetDocuments            = "getDocuments"
	ActionAIProxy                 = "aiProxy"
)

// Statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrRejected is returned when the backend answers with a non-success status.
var ErrRejected = errors.New("backend rejected request")

// Envelope is the response shape of every action.
type Envelope struct {
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data,omitempty"`
	TotalCount *int            `json:"totalCount,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// SavePresentationRequest carries a draft record and its base64 artifact.
type SavePresentationRequest struct {
	Action         string                   `json:"action"`
	Presentation   types.PresentationRecord `json:"presentation"`
	ArtifactData   string                   `json:"artifactData"`
	ArtifactFormat types.ExportFormat       `json:"artifactFormat,omitempty"`
}

// DeleteRequest removes a record by id.
type DeleteRequest struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// SaveQuestionRequest carries a question record.
type SaveQuestionRequest struct {
	Action   string               `json:"action"`
	Question types.QuestionRecord `json:"question"`
}

// AIProxyRequest is one generation round-trip.
type AIProxyRequest struct {
	Action   string `json:"action"`
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
}

// action peeks at the action field of a POST body.
type action struct {
	Action string `json:"action"`
}

// FileContent is the data of a getFileContent response.
type FileContent struct {
	FullText string `json:"fullText"`
}
