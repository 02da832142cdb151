package classifier

import "fmt"

// UnavailableError indicates the backing classifier service could not be
// reached at all. Document processing is aborted for the affected
// document and the caller decides whether to retry.
type UnavailableError struct {
	Model string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("classifier %s unavailable: %s", e.Model, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ResponseError indicates the classifier returned a structurally
// unusable response (unparsable body, length mismatch).
type ResponseError struct {
	Model  string
	Reason string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("classifier %s returned malformed response: %s", e.Model, e.Reason)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
