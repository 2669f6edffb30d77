package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ClientInputError rejects a request before the upstream is contacted.
type ClientInputError struct {
	Status  int
	Message string
}

func (e *ClientInputError) Error() string { return e.Message }

// StatusCode defaults to 400.
func (e *ClientInputError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

// TransportError means the upstream could not be reached or answered with
// something the relay cannot hand back as JSON.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string { return "Upstream request failed: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode is 504 for timeouts, otherwise Status or 500.
func (e *TransportError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	if isTimeout(e.Err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
