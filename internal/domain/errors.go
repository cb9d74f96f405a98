package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrClaimConflict      = errors.New("video already claimed by another worker")
	ErrCapacityExceeded   = errors.New("storage capacity exceeded")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrDuplicateReport    = errors.New("duplicate view report")
)

// EncodeError reports a failed encoder invocation for one rendition.
// Renditions completed before the failure stay published.
type EncodeError struct {
	Rendition  string
	ExitReason string
	Stderr     string
	Err        error
}

func (e *EncodeError) Error() string {
	if e.ExitReason != "" {
		return fmt.Sprintf("encode %s: %s", e.Rendition, e.ExitReason)
	}
	return fmt.Sprintf("encode %s: %v", e.Rendition, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// StorageError wraps a blob store failure. Retryable errors are transient
// I/O conditions; everything else (capacity, missing keys) is terminal for
// the current attempt.
type StorageError struct {
	Op        string
	Key       string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a pipeline attempt that failed with err is
// worth repeating. Capacity exhaustion and unknown-resource errors are not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrNotFound) {
		return false
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}
