package errors

import "errors"

var (
	ErrRunNotFound = errors.New("publish run not found")

	ErrLockNotFound = errors.New("publish lock not found")

	// ErrLockHeld means another run owns the container's publish lock.
	ErrLockHeld = errors.New("publish lock is held")

	// ErrInvalidTransition means the run was not in a state that allows the update.
	ErrInvalidTransition = errors.New("invalid publish run transition")
)
