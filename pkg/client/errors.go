package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrContextCancelled is returned when the context is cancelled between attempts.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMissingCredentials is returned when a store has no subdomain or token.
	ErrMissingCredentials = errors.New("store credentials incomplete")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures (dial, TLS, timeout).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents non-2xx statuses outside 4xx/5xx.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// RequestError is returned once every attempt for a request has failed.
// It carries either the last HTTP status or the transport error.
type RequestError struct {
	Method     string
	URL        string // token redacted
	StatusCode int    // 0 for transport failures
	Status     string
	ErrorClass ErrorClass
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed after %d attempt(s): %v",
			e.Method, e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s failed after %d attempt(s): %s",
		e.Method, e.URL, e.Attempts, e.Status)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
