package api

import (
	"errors"
	"fmt"
)

// Sentinel failures. ErrUnauthorized additionally invalidates the client's
// credential before it is returned, forcing re-authentication.
var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrNotFound     = errors.New("api: not found")
)

// TransientError wraps a transport-level failure (connection refused,
// timeout, body read error). Retrying is the caller's choice, never
// automatic.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitError is advisory: the credential stays valid and no state
// changes; the user should back off.
type RateLimitError struct {
	Detail string
}

func (e *RateLimitError) Error() string {
	if e.Detail != "" {
		return "api: rate limited: " + e.Detail
	}
	return "api: rate limited"
}

// InvalidRequestError means the user must correct the input. Detail is
// the server-provided message, verbatim, when present.
type InvalidRequestError struct {
	Detail string
}

func (e *InvalidRequestError) Error() string {
	if e.Detail != "" {
		return "api: invalid request: " + e.Detail
	}
	return "api: invalid request"
}

// ServerError covers any other non-2xx response.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: server error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: server error (status %d)", e.StatusCode)
}
