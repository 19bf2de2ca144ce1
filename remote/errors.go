//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBaseURLRequired is returned by NewClient without a base URL.
	ErrBaseURLRequired = errors.New("remote: base URL is required")
	// ErrAPIKeyRequired is returned by NewClient without an API key.
	ErrAPIKeyRequired = errors.New("remote: API key is required")
	// ErrAuthentication classifies 401/403 responses.
	ErrAuthentication = errors.New("remote: authentication failed")
	// ErrValidation classifies 422 responses.
	ErrValidation = errors.New("remote: request validation failed")
	// ErrConnection classifies transport failures that survived all
	// retry attempts.
	ErrConnection = errors.New("remote: connection error")
)

// APIError is a non-2xx response from the memory service.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("remote: api error: status %d: %s", e.StatusCode, e.Message)
}

// Is lets callers classify APIErrors with errors.Is against the
// package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrValidation:
		return e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
