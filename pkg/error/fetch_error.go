package error

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransientFetchError wraps network failures, timeouts, 429 and 5xx answers.
// These are retried and then served from cache.
type TransientFetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientFetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: remote answered %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

func (e *TransientFetchError) ErrCode() string { return "TRANSIENT_FETCH_ERROR" }

func (e *TransientFetchError) StatusCode() int { return http.StatusServiceUnavailable }

// AuthError is a 401/403 answer. It is never retried.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (%d): %v", e.Status, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) ErrCode() string { return "AUTH_ERROR" }

func (e *AuthError) StatusCode() int {
	if e.Status == http.StatusForbidden {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// PersistenceError is a cache load/save failure. It is logged and counted, never returned to data consumers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) ErrCode() string { return "PERSISTENCE_ERROR" }

func (e *PersistenceError) StatusCode() int { return http.StatusInternalServerError }

// ComputationError is raised inside health scoring and caught at the checker boundary.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("health computation failed: %v", e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func (e *ComputationError) ErrCode() string { return "COMPUTATION_ERROR" }

func (e *ComputationError) StatusCode() int { return http.StatusInternalServerError }

func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil || IsAuth(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var transient *TransientFetchError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
