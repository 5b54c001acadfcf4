package sim

import (
	"errors"
	"fmt"
)

// Fatal run errors. A run stops at the first one; nothing is retried.
var (
	// ErrInvalidDelay is returned for a negative or non-finite delay.
	ErrInvalidDelay = errors.New("invalid delay")
	// ErrUnsatisfiableRequest is returned when a request asks for more units
	// than the resource can ever supply.
	ErrUnsatisfiableRequest = errors.New("unsatisfiable resource request")
	// ErrMalformedBatchPolicy is returned when a batch can never be released.
	ErrMalformedBatchPolicy = errors.New("malformed batch policy")
	// ErrTimeoutExceeded is returned when the wall-clock bound of a run expires.
	// It is not a defect: the partial statistics remain valid.
	ErrTimeoutExceeded = errors.New("timeout exceeded")

	// ErrNotHeld is returned when releasing a grant that is not held.
	ErrNotHeld = errors.New("grant not held")
	// ErrAlreadyBatched is returned when an entity joins a batch while it is
	// still a member of another open batch.
	ErrAlreadyBatched = errors.New("entity already in an open batch")
	// ErrNotClosed is returned when releasing a batch that was never closed
	// or was already released.
	ErrNotClosed = errors.New("batch not closed")
)

// RunError attaches the pathway context to a fatal error.
type RunError struct {
	Entity   string
	Stage    Stage
	State    State
	Resource string
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("entity %s in %s/%s", e.Entity, e.Stage, e.State)
	if e.Resource != "" {
		msg += fmt.Sprintf(" at resource %q", e.Resource)
	}
	return msg + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }

// ErrorKind classifies err into the names used by structured failure reports.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDelay):
		return "invalid_delay"
	case errors.Is(err, ErrUnsatisfiableRequest):
		return "unsatisfiable_request"
	case errors.Is(err, ErrMalformedBatchPolicy):
		return "malformed_batch_policy"
	case errors.Is(err, ErrTimeoutExceeded):
		return "timeout_exceeded"
	default:
		return "contract_violation"
	}
}
