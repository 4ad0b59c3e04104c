// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/pdiddy/deck-engine/internal/layout"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// HTML slide markup. One <section> per slide, 16:9 pages for print export.
const htmlDeckTmpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
@page { size: 13.333in 7.5in; margin: 0; }
body { margin: 0; }
section.slide { width: 13.333in; height: 7.5in; box-sizing: border-box; padding: 0.6in; page-break-after: always; position: relative; }
section.slide h1, section.slide h2 { margin-top: 0; }
ul.references { list-style: none; padding-left: 0; }
.logo { position: absolute; top: 0.3in; right: 0.4in; max-height: 0.6in; }
.cols { display: flex; gap: 0.4in; }
.cols > div { flex: 1; }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 0.3in; }
.stack > div { margin-bottom: 0.2in; }
</style></head>
<body>
{{range .Slides}}{{.}}
{{end}}</body></html>
`

const htmlSlideTmpl = `{{define "open"}}<section class="slide {{.Class}}" style="font-family: {{.Theme.FontFamily}}; color: {{.Theme.SecondaryColor}};">{{if .Logo}}<img class="logo" src="{{.Logo}}" alt="logo">{{end}}{{end}}
{{define "cover"}}{{template "open" .}}<h1 style="color: {{.Theme.PrimaryColor}};">{{.Title}}</h1>{{range .Presenters}}<p class="presenter">{{.}}</p>{{end}}</section>{{end}}
{{define "one"}}{{template "open" .}}<h2 style="color: {{.Theme.PrimaryColor}};">{{.Title}}</h2><p>{{.Text}}</p></section>{{end}}
{{define "two"}}{{template "open" .}}<h2 style="color: {{.Theme.PrimaryColor}};">{{.Title}}</h2><div class="cols"><div>{{.Left}}</div><div>{{.Right}}</div></div></section>{{end}}
{{define "items"}}{{template "open" .}}<h2 style="color: {{.Theme.PrimaryColor}};">{{.Title}}</h2><div class="{{.Wrap}}">{{range .Items}}<div><h3>{{.H}}</h3><p>{{.B}}</p></div>{{end}}</div></section>{{end}}
{{define "refs"}}{{template "open" .}}<h2 style="color: {{.Theme.PrimaryColor}};">{{.Title}}</h2><ul class="references">{{range .Citations}}<li>{{.}}</li>{{end}}</ul></section>{{end}}
`

var slideTemplates = template.Must(template.New("slides").Parse(htmlSlideTmpl))
var deckTemplate = template.Must(template.New("deck").Parse(htmlDeckTmpl))

type slideData struct {
	Class      string
	Wrap       string
	Title      string
	Theme      types.Theme
	Logo       template.URL
	Presenters []string
	Text       string
	Left       string
	Right      string
	Items      layout.Items
	Citations  []string
}

// HTMLRenderer renders slides as HTML sections in a single document.
type HTMLRenderer struct {
	title  string
	slides []template.HTML
}

// NewHTMLRenderer creates an empty HTML deck with the given document title.
func NewHTMLRenderer(title string) *HTMLRenderer {
	return &HTMLRenderer{title: title}
}

// Len returns the number of slides drawn so far.
func (h *HTMLRenderer) Len() int { return len(h.slides) }

func (h *HTMLRenderer) draw(name string, d slideData, theme types.Theme, logo *Logo) error {
	d.Theme = theme
	d.Logo = logoURL(logo)
	var buf bytes.Buffer
	if err := slideTemplates.ExecuteTemplate(&buf, name, d); err != nil {
		return fmt.Errorf("rendering %s slide: %w", name, err)
	}
	h.slides = append(h.slides, template.HTML(buf.String()))
	return nil
}

// DrawCover draws the title slide.
func (h *HTMLRenderer) DrawCover(title string, presenters []string, theme types.Theme, logo *Logo) error {
	return h.draw("cover", slideData{Class: "cover", Title: title, Presenters: presenters}, theme, logo)
}

// DrawOneCard draws a single text card.
func (h *HTMLRenderer) DrawOneCard(title string, c layout.Card, theme types.Theme, logo *Logo) error {
	return h.draw("one", slideData{Class: "one-card", Title: title, Text: c.Text}, theme, logo)
}

// DrawTwoColumn draws left and right columns.
func (h *HTMLRenderer) DrawTwoColumn(title string, c layout.Columns, theme types.Theme, logo *Logo) error {
	return h.draw("two", slideData{Class: "two-col", Title: title, Left: c.Left, Right: c.Right}, theme, logo)
}

// DrawThreeColumn draws items side by side.
func (h *HTMLRenderer) DrawThreeColumn(title string, items layout.Items, theme types.Theme, logo *Logo) error {
	return h.draw("items", slideData{Class: "three-col", Wrap: "cols", Title: title, Items: items}, theme, logo)
}

// DrawTwoByTwo draws items in a two by two grid.
func (h *HTMLRenderer) DrawTwoByTwo(title string, items layout.Items, theme types.Theme, logo *Logo) error {
	return h.draw("items", slideData{Class: "two-by-two", Wrap: "grid", Title: title, Items: items}, theme, logo)
}

// DrawStacking draws items stacked vertically.
func (h *HTMLRenderer) DrawStacking(title string, items layout.Items, theme types.Theme, logo *Logo) error {
	return h.draw("items", slideData{Class: "stacking", Wrap: "stack", Title: title, Items: items}, theme, logo)
}

// DrawReferences draws the citation list.
func (h *HTMLRenderer) DrawReferences(title string, citations []string, theme types.Theme, logo *Logo) error {
	return h.draw("refs", slideData{Class: "references", Title: title, Citations: citations}, theme, logo)
}

// Encode returns the complete HTML document.
func (h *HTMLRenderer) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := deckTemplate.Execute(&buf, struct {
		Title  string
		Slides []template.HTML
	}{h.title, h.slides})
	if err != nil {
		return nil, fmt.Errorf("rendering deck: %w", err)
	}
	return buf.Bytes(), nil
}

func logoURL(logo *Logo) template.URL {
	if logo == nil || len(logo.Data) == 0 {
		return ""
	}
	mime := logo.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(logo.Data))
}
