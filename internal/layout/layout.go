// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout resolves a slide's declared layout tag and loosely typed
// payload into one of a fixed set of rendering contracts. Payloads that do
// not match their declared shape are coerced, never rejected.
package layout

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Kind is a layout kind.
type Kind int

const (
	OneCard Kind = iota
	TwoCol
	ThreeCol
	TwoByTwo
	Stacking
)

var kindNames = [...]string{"ONE_CARD", "TWO_COL", "THREE_COL", "TWO_BY_TWO", "STACKING"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// kindTags maps accepted layout tags to kinds. Both the wire tags the prompt
// asks for and the descriptive names are accepted.
var kindTags = map[string]Kind{
	"1_CARD":     OneCard,
	"ONE_CARD":   OneCard,
	"2_COL":      TwoCol,
	"TWO_COL":    TwoCol,
	"3_COL":      ThreeCol,
	"THREE_COL":  ThreeCol,
	"2X2":        TwoByTwo,
	"TWO_BY_TWO": TwoByTwo,
	"STACKING":   Stacking,
}

// ParseKind reads a layout tag case-insensitively. Absent or unrecognized
// tags resolve to OneCard.
func ParseKind(tag string) Kind {
	key := strings.ToUpper(strings.TrimSpace(tag))
	key = strings.ReplaceAll(key, "-", "_")
	if k, ok := kindTags[key]; ok {
		return k
	}
	return OneCard
}

// DefaultTitle is used for slides without a title.
const DefaultTitle = "Core Insight"

// Content is the resolved payload of a slide. It is one of Card, Columns, or
// Items.
type Content interface {
	layoutContent()
}

// Card is the content of a ONE_CARD slide.
type Card struct {
	Text string
}

// Columns is the content of a TWO_COL slide.
type Columns struct {
	Left  string
	Right string
}

// Item is one heading/body entry of a list layout.
type Item struct {
	H string `json:"h"`
	B string `json:"b"`
}

// Items is the content of THREE_COL, TWO_BY_TWO, and STACKING slides.
type Items []Item

func (Card) layoutContent()    {}
func (Columns) layoutContent() {}
func (Items) layoutContent()   {}

// Slide is a resolved body slide, the only shape a renderer consumes.
type Slide struct {
	Kind    Kind
	Title   string
	Content Content
}

// Resolve maps a slide spec onto its rendering contract.
func Resolve(spec types.SlideSpec) Slide {
	kind := ParseKind(spec.LayoutType)

	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = DefaultTitle
	}

	data := parseData(spec.Data)

	s := Slide{Kind: kind, Title: title}
	switch kind {
	case TwoCol:
		s.Content = resolveColumns(data)
	case ThreeCol, TwoByTwo, Stacking:
		s.Content = MapListItems(data)
	default:
		s.Content = Card{Text: ExtractBestText(data)}
	}
	return s
}

// ResolveAll resolves every slide of a blueprint in order.
func ResolveAll(specs []types.SlideSpec) []Slide {
	out := make([]Slide, len(specs))
	for i, spec := range specs {
		out[i] = Resolve(spec)
	}
	return out
}

func parseData(raw json.RawMessage) gjson.Result {
	if len(raw) == 0 {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// resolveColumns reads left/col1 and right/col2. A bare string payload
// becomes the left column.
func resolveColumns(data gjson.Result) Columns {
	if data.Type == gjson.String {
		return Columns{Left: data.Str}
	}
	return Columns{
		Left:  ExtractBestText(firstTruthy(data, "left", "col1")),
		Right: ExtractBestText(firstTruthy(data, "right", "col2")),
	}
}

// firstTruthy returns the first present, non-empty value among keys.
func firstTruthy(data gjson.Result, keys ...string) gjson.Result {
	if !data.IsObject() {
		return gjson.Result{}
	}
	for _, k := range keys {
		if v := data.Get(k); truthy(v) {
			return v
		}
	}
	return gjson.Result{}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
