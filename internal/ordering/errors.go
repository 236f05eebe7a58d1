// Package ordering drives a conversation from raw order text to a finalized
// order: it splits and parses utterances, resolves items and packaging,
// merges lines into the session and hands completed orders to the ledger.
package ordering

import (
	"errors"
	"fmt"
	"strings"

	"voiceorder/internal/parse"
)

var (
	// ErrNotFound means a menu item or packaging choice could not be resolved.
	ErrNotFound = errors.New("not found")
	// ErrParsingFailed means the text held no usable item, quantity or answer.
	ErrParsingFailed = errors.New("parsing failed")
)

// ItemFailure describes one span that did not become an order line.
type ItemFailure struct {
	Span     string            `json:"span"`
	MenuText string            `json:"menu_text,omitempty"`
	Kind     parse.FailureKind `json:"kind"` // FailureNone when parsing worked but resolution did not
	Reason   string            `json:"reason"` // Korean re-prompt
	Err      error             `json:"-"`
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("'%s': %s", f.Span, f.Reason)
}

func (f ItemFailure) Unwrap() error { return f.Err }

// SubmitError carries every failure of an utterance that resolved nothing.
type SubmitError struct {
	Failures []ItemFailure
}

func (e *SubmitError) Error() string {
	if len(e.Failures) == 0 {
		return "처리할 수 있는 주문이 없습니다."
	}
	return "다음 주문에 문제가 있습니다:\n" + failureList(e.Failures)
}

func (e *SubmitError) Unwrap() []error {
	if len(e.Failures) == 0 {
		return []error{ErrParsingFailed}
	}
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

func failureList(fs []ItemFailure) string {
	lines := make([]string, len(fs))
	for i, f := range fs {
		lines[i] = f.Error()
	}
	return strings.Join(lines, "\n")
}

// backendFailure marks a search backend error so callers can tell it from a
// plain miss while errors.Is(err, ErrNotFound) still holds.
func backendFailure(cause error) error {
	return fmt.Errorf("%w: search backend failure: %w", ErrNotFound, cause)
}
