package errors

import "errors"

var (
	ErrVenueNotFound = errors.New("venue not found")

	ErrInvalidID = errors.New("invalid ID format")
)
