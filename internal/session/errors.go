package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidStep is returned when an operation runs outside its step.
	ErrInvalidStep = errors.New("invalid session step")
	// ErrUpdateFailed is returned when a write did not apply.
	ErrUpdateFailed = errors.New("session update failed")
	// ErrVersionConflict is returned by a store when the compare-and-swap
	// version no longer matches.
	ErrVersionConflict = errors.New("session version conflict")
)

// StepError reports an operation attempted in the wrong step.
type StepError struct {
	SessionID string
	Current   Step
	Allowed   []Step
	// Target is set when the rejected write tried to move the session.
	Target Step
}

func (e *StepError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("session %s: cannot move from %s to %s", e.SessionID, e.Current, e.Target)
	}
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("session %s: step is %s, operation requires %s", e.SessionID, e.Current, strings.Join(allowed, " or "))
}

// Is makes errors.Is(err, ErrInvalidStep) match.
func (e *StepError) Is(target error) bool { return target == ErrInvalidStep }
