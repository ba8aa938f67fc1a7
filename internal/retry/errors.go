package retry

import "errors"

// Retry manager errors.
var (
	// ErrMaxAttemptsExceeded is returned when every allowed attempt has failed.
	ErrMaxAttemptsExceeded = errors.New("maximum retry attempts exceeded")

	// ErrNonRetryableError is returned when an error is not retryable.
	ErrNonRetryableError = errors.New("error is not retryable")

	// ErrKeyRequired is returned when an attempt key is required but not provided.
	ErrKeyRequired = errors.New("attempt key is required")
)
