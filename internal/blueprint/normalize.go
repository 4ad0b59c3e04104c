// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// slideKeys are the object keys tried for the slides array, in priority order.
var slideKeys = []string{"slides", "deck", "presentation"}

// Normalize coerces a parsed blueprint into the canonical shape. A bare
// array is taken as the slides; otherwise the first of slides, deck, and
// presentation holding an array wins. Citations are not numbered here.
func Normalize(root gjson.Result) (types.Blueprint, error) {
	var (
		slides    gjson.Result
		citations []string
	)

	switch {
	case root.IsArray():
		slides = root
	case root.IsObject():
		for _, key := range slideKeys {
			if v := root.Get(key); v.IsArray() {
				slides = v
				break
			}
		}
		citations = readCitations(root.Get("citations"))
	}

	if !slides.IsArray() {
		return types.Blueprint{}, fail(ErrInvalidStructure, fmt.Errorf("no slides array in %s", describe(root)))
	}

	bp := types.Blueprint{
		Slides:    make([]types.SlideSpec, 0, len(slides.Array())),
		Citations: citations,
	}
	if bp.Citations == nil {
		bp.Citations = []string{}
	}
	for _, s := range slides.Array() {
		bp.Slides = append(bp.Slides, slideSpec(s))
	}
	return bp, nil
}

// ParseBlueprint sanitizes, parses, and normalizes a raw generation response.
func ParseBlueprint(raw string) (types.Blueprint, error) {
	root, err := Parse(raw)
	if err != nil {
		return types.Blueprint{}, err
	}
	return Normalize(root)
}

// slideSpec reads one slides-array element. A bare string becomes the data
// of a default-layout slide.
func slideSpec(v gjson.Result) types.SlideSpec {
	if v.Type == gjson.String {
		return types.SlideSpec{Data: json.RawMessage(v.Raw)}
	}
	if !v.IsObject() {
		return types.SlideSpec{}
	}

	spec := types.SlideSpec{
		LayoutType: v.Get("layoutType").String(),
		Title:      v.Get("title").String(),
	}
	if data := v.Get("data"); data.Exists() {
		spec.Data = json.RawMessage(data.Raw)
	}
	return spec
}

func readCitations(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, c := range v.Array() {
		if c.IsObject() || c.IsArray() {
			continue
		}
		if s := c.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FormatCitations numbers citations "1. ", "2. ", ... when there is more than
// one. A single citation stays unnumbered.
func FormatCitations(citations []string) []string {
	if len(citations) <= 1 {
		return append([]string{}, citations...)
	}
	out := make([]string, len(citations))
	for i, c := range citations {
		out[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return out
}

func describe(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	default:
		return v.Type.String()
	}
}
