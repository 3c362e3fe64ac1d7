package ragflow

import (
	"fmt"
	"net/http"
	"time"
)

// TransportError reports a non-2xx response from the RAGFlow API.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ragflow request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("ragflow returned status %d: %s", e.StatusCode, e.Body)
}

// NotFound reports whether the backend rejected the session or agent.
func (e *TransportError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// TimeoutError reports a request that exceeded its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ragflow request timed out after %s", e.Timeout)
}

// MalformedResponseError reports a 2xx response whose body was not
// valid JSON.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("ragflow returned a malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
