// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// defaultGoal is used when the caller supplies no strategic goal.
const defaultGoal = "A unified synthesis and technical deep-dive of these collections."

// blueprintPromptTmpl is the instruction sent to the generation endpoint. It
// carries its own JSON contract so the response can be checked against it.
// Citations must come from the metadata block only; the source context is
// content fuel and is never a citation source.
var blueprintPromptTmpl = template.Must(template.New("blueprint").Parse(`ACT AS A SENIOR TECHNICAL STRATEGIST.
TASK: CREATE A {{.BodySlides}}-SLIDE DEEP ANALYSIS DECK IN {{.Language}} BY CROSS-ANALYZING ALL PROVIDED SOURCES.

--- USER STRATEGIC GOAL ---
{{.Goal}}

--- MANDATORY JSON RULES ---
1. RETURN A ROOT OBJECT WITH "slides" (array) AND "citations" (array).
2. DATA MAPPING RULES:
   - 1_CARD: "data" must be a STRING holding the slide's core message.
   - 2_COL: "data" must be { "left": "...", "right": "..." }.
   - 3_COL, 2X2, STACKING: "data" must be an array of objects { "h": "Short Heading", "b": "Detailed body text" }.
3. CITATIONS RULE (CRITICAL): build "citations" as a Harvard bibliographic list using ONLY the COLLECTION METADATA below.
   Format per item: [Authors]. ([Year]) '[Title]'. [Publisher/Journal].
   DO NOT take references from the SOURCE CONTEXT.
4. NO CONVERSATION. ONLY RAW JSON.
5. LANGUAGE: {{.Language}}.

COLLECTION METADATA:
{{range .Metadata}}{{.}}
{{end}}
SOURCE CONTEXT (FOR CONTENT ONLY):
{{.Context}}

SCHEMA_TEMPLATE:
{
  "slides": [
    { "layoutType": "1_CARD", "title": "...", "data": "Main analysis text" }
  ],
  "citations": ["Surname, I. (Year) 'Title'. Journal.", "Surname, I. (Year) 'Title'. Journal."]
}
`))

// BodySlideCount is the number of slides requested from the model: the
// requested total minus the cover and references, at least one.
func BodySlideCount(total int) int {
	return max(1, total-2)
}

// MetadataLine renders one document for the citation source block. It never
// includes document text.
func MetadataLine(doc types.SourceDocument) string {
	return fmt.Sprintf("- TITLE: %s | AUTHORS: %s | YEAR: %s | PUB: %s",
		doc.Title, strings.Join(doc.Authors, ", "), doc.Year, doc.Publisher)
}

// RenderPrompt builds the blueprint instruction for one synthesis run.
func RenderPrompt(cfg types.SynthesisConfig, docs []types.SourceDocument, harvested string) (string, error) {
	goal := strings.TrimSpace(cfg.Context)
	if goal == "" {
		goal = defaultGoal
	}

	metadata := make([]string, len(docs))
	for i, d := range docs {
		metadata[i] = MetadataLine(d)
	}

	data := struct {
		BodySlides int
		Language   string
		Goal       string
		Metadata   []string
		Context    string
	}{
		BodySlides: BodySlideCount(cfg.SlideCount),
		Language:   cfg.Language,
		Goal:       goal,
		Metadata:   metadata,
		Context:    harvested,
	}

	var buf bytes.Buffer
	if err := blueprintPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering blueprint prompt: %w", err)
	}
	return buf.String(), nil
}
