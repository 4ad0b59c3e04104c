// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"strings"

	"github.com/tidwall/gjson"
)

// textKeys are tried in order when a payload that should be text arrives as
// an object.
var textKeys = []string{"text", "content", "body", "description", "insight", "analysis", "message"}

var (
	headingKeys  = []string{"h", "title", "heading", "topic"}
	bodyFallback = []string{"b", "desc", "description"}
)

const (
	defaultItemHeading   = "Point"
	bareStringHeading    = "Insight"
	stringFieldSeparator = "\n\n"
)

// ExtractBestText returns the most plausible text in v. Strings are returned
// as is. For objects the first string among the text keys wins; otherwise
// all string fields are joined by a blank line in document order. Anything
// else yields "".
func ExtractBestText(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject():
		for _, k := range textKeys {
			if f := v.Get(k); f.Type == gjson.String && f.Str != "" {
				return f.Str
			}
		}
		var parts []string
		v.ForEach(func(_, value gjson.Result) bool {
			if value.Type == gjson.String {
				parts = append(parts, value.Str)
			}
			return true
		})
		return strings.Join(parts, stringFieldSeparator)
	case v.IsArray():
		var parts []string
		for _, e := range v.Array() {
			if e.Type == gjson.String {
				parts = append(parts, e.Str)
			}
		}
		return strings.Join(parts, stringFieldSeparator)
	default:
		return ""
	}
}

// MapListItems reads a list payload: a bare array, or an array under items or
// points. Bare strings become {Insight, s}; objects take their heading from
// h, title, heading, or topic and their body from the best text of the
// object, falling back to b, desc, or description.
func MapListItems(data gjson.Result) Items {
	var raw []gjson.Result
	switch {
	case data.IsArray():
		raw = data.Array()
	case data.IsObject():
		for _, k := range []string{"items", "points"} {
			if v := data.Get(k); v.IsArray() {
				raw = v.Array()
				break
			}
		}
	}

	items := make(Items, 0, len(raw))
	for _, r := range raw {
		items = append(items, listItem(r))
	}
	return items
}

func listItem(r gjson.Result) Item {
	if r.Type == gjson.String {
		return Item{H: bareStringHeading, B: r.Str}
	}
	if !r.IsObject() {
		return Item{H: defaultItemHeading, B: scalarText(r)}
	}

	heading := defaultItemHeading
	for _, k := range headingKeys {
		if v := r.Get(k); truthy(v) && !v.IsObject() && !v.IsArray() {
			heading = v.String()
			break
		}
	}

	body := ExtractBestText(r)
	if body == "" {
		for _, k := range bodyFallback {
			if v := r.Get(k); truthy(v) && !v.IsObject() && !v.IsArray() {
				body = v.String()
				break
			}
		}
	}
	return Item{H: heading, B: body}
}

func scalarText(r gjson.Result) string {
	if r.Type == gjson.Number {
		return r.Raw
	}
	return ""
}
