// Package errs defines the error kinds shared by the API client, the stream
// client and the lifecycle manager.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired means no credential is held; the request was never sent.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthRejected means the server refused the presented credential.
	ErrAuthRejected = errors.New("credential rejected")
	// ErrValidation means a local shape check failed before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrTimeout means a bounded wait elapsed before the peer responded.
	ErrTimeout = errors.New("request timed out")
	// ErrAlreadyPending means a start/stop for the same config is in flight.
	ErrAlreadyPending = errors.New("command already pending")
	// ErrTransportClosed means the realtime stream ended.
	ErrTransportClosed = errors.New("stream transport closed")
	// ErrDecodeFailed marks a malformed stream frame; it is logged and
	// dropped at the stream layer and never reaches callers.
	ErrDecodeFailed = errors.New("frame decode failed")
)

// ServerError carries a structured business-rule rejection from the backend.
// Detail is the server's message, forwarded verbatim.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.Status)
	}
	return fmt.Sprintf("server rejected request (status %d): %s", e.Status, e.Detail)
}

// AsServerError unwraps err to a *ServerError if one is in its chain.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
