package reconcile

import (
	"errors"
	"fmt"
)

// ErrReconciliationAborted is matched by every error Run returns. The
// watermark has not moved, so the run is safe to repeat.
var ErrReconciliationAborted = errors.New("reconciliation aborted")

// AbortError records which stage of a run failed and why.
type AbortError struct {
	UserID string
	Stage  State
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("reconciliation aborted for user %s during %s: %v", e.UserID, e.Stage, e.Err)
}

// Unwrap exposes both ErrReconciliationAborted and the underlying cause to
// errors.Is and errors.As.
func (e *AbortError) Unwrap() []error {
	return []error{ErrReconciliationAborted, e.Err}
}
