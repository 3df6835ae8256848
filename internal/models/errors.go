package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrOffline              = errors.New("network unavailable")
	ErrRequiresConnectivity = errors.New("operation requires connectivity")
	ErrDrainInProgress      = errors.New("drain already in progress")
	ErrEntryRejected        = errors.New("queued operation rejected by server")
	ErrStoreUnavailable     = errors.New("local store unavailable")
)

// APIError represents a non-2xx response from the ward API. Message carries
// the server-provided user-facing text when the envelope had one.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Transient reports whether the failure is worth retrying on a later drain.
// Server errors, timeouts and throttling are transient; other 4xx responses
// are semantic rejections that will never succeed as queued.
func (e *APIError) Transient() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// IsTransient classifies an error from the network gateway. Anything that is
// not a semantic APIError (connection refused, DNS failure, context deadline)
// counts as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}

// SyncError describes a failure while draining a queued operation.
type SyncError struct {
	Entity      EntityType
	OperationID string
	Method      string
	Err         error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s [%s]: %v", e.Entity, e.Method, e.OperationID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
