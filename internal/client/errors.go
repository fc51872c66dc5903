package client

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when an operation needs a session and
// none is present.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrSessionExpired is returned when the server rejected the session and
// a refresh could not recover it. The local session is cleared before
// this error is returned.
var ErrSessionExpired = errors.New("session expired")

// LoginError carries the server's message for a rejected login attempt.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string { return e.Message }

// RequestError carries the server's message for a non-auth request
// failure (any non-2xx status that is not a recoverable 401).
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}
