package claude

import (
	"fmt"
	"time"
)

// ConfigurationError means the request could not be turned into a backend
// invocation at all (no user turn to translate).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ValidationError represents a malformed input the caller supplied, such as
// a data URI that is not an image.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Reason)
}

// FetchError represents a failed remote image retrieval.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image fetch failed for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("image fetch failed for %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProcessError means the backend process exited non-zero; Stderr carries its
// diagnostic output.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("claude command failed (exit %d): %s", e.ExitCode, e.Stderr)
}

// TimeoutError means a blocking invocation exceeded its wall-clock budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("claude command timed out after %s", e.Budget)
}

// ProtocolError means the backend's event stream violated the one invariant
// we enforce: a terminal result event must be present.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// BackendError carries the backend's own error message from a well-formed
// result event with is_error set.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return "claude returned error: " + e.Message
}
