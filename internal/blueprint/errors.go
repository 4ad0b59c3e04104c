// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import "errors"

// Failure categories. All of them are terminal for the current run.
var (
	// ErrSynthesisInterrupted reports an empty or missing generation response.
	ErrSynthesisInterrupted = errors.New("synthesis interrupted")

	// ErrMalformedBlueprint reports a response that is not valid JSON after
	// sanitization.
	ErrMalformedBlueprint = errors.New("malformed blueprint")

	// ErrInvalidStructure reports JSON with no resolvable slides array.
	ErrInvalidStructure = errors.New("invalid blueprint structure")
)

// FailureLabel is the one message shown to users for any blueprint failure.
const FailureLabel = "presentation synthesis failed"

// Failure wraps a blueprint failure with its category. errors.Is matches
// both the category and the cause.
type Failure struct {
	Category error
	Cause    error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return f.Category.Error()
	}
	return f.Category.Error() + ": " + f.Cause.Error()
}

// Unwrap exposes the category and the cause.
func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Category}
	}
	return []error{f.Category, f.Cause}
}

// Label returns the constant user-facing message.
func (f *Failure) Label() string { return FailureLabel }

func fail(category, cause error) error {
	return &Failure{Category: category, Cause: cause}
}
