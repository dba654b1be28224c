package errors

import "errors"

var (
	ErrCoachNotFound = errors.New("coach not found")

	ErrClassTypeNotFound = errors.New("class type not found")

	ErrStaffEntryNotFound = errors.New("staff directory entry not found")

	ErrInvalidID = errors.New("invalid ID format")
)
