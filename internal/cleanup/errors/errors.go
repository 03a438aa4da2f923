package errors

import "errors"

var (
	// ErrLockUnavailable is returned when the lock transaction itself fails.
	// A lock held by another sweep is not an error.
	ErrLockUnavailable = errors.New("maintenance lock unavailable")

	ErrSpaceIteration = errors.New("failed to iterate spaces")

	ErrSpaceCleanup = errors.New("space cleanup failed")

	ErrDeleteBatch = errors.New("batched delete failed")

	ErrReconcile = errors.New("user count reconciliation failed")
)
