package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCancelled marks a stream stopped through its Cancellation. It never
// reaches the sink.
var ErrCancelled = errors.New("stream cancelled")

// SessionCreationError is returned when the backend refuses or cannot be
// reached for session creation.
type SessionCreationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SessionCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to create session: %v", e.Err)
	}
	msg := fmt.Sprintf("failed to create session: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// StreamTransportError covers everything that stops a stream before it ends
// normally: a non-success status, a missing body or a failed read. It is
// reported to the sink as a single protocol.Error.
type StreamTransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StreamTransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("stream failed: %v", e.Err)
	default:
		return "stream failed"
	}
}

func (e *StreamTransportError) Unwrap() error { return e.Err }

// errNoBody is wrapped when the backend answers without a response body
var errNoBody = errors.New("response body is empty")
