package errors

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")

	ErrContainerNotFound = errors.New("event container not found")

	ErrInvalidID = errors.New("invalid ID format")
)
