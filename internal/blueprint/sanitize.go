// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// leadingFence matches an opening code fence with an optional language tag.
	leadingFence = regexp.MustCompile("(?i)^```[a-z0-9_-]*\\s*")
	// trailingFence matches a closing code fence.
	trailingFence = regexp.MustCompile("\\s*```$")
	// trailingComma matches a comma directly before a closing brace or bracket.
	trailingComma = regexp.MustCompile(`,\s*([\]}])`)
)

// Sanitize turns a model's raw text response into a JSON candidate. It trims,
// strips code fences, slices from the first opening brace or bracket to the
// last closing one, and drops trailing commas. The result is not validated.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	end := max(strings.LastIndex(s, "}"), strings.LastIndex(s, "]"))
	if start != -1 && end >= start {
		s = s[start : end+1]
	}

	return trailingComma.ReplaceAllString(s, "$1")
}

// Parse sanitizes raw and parses it as JSON. A parse failure is reported as
// ErrMalformedBlueprint; it is never swallowed.
func Parse(raw string) (gjson.Result, error) {
	candidate := Sanitize(raw)

	var doc json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return gjson.Result{}, fail(ErrMalformedBlueprint, err)
	}
	return gjson.ParseBytes(doc), nil
}
