package mbo

import "errors"

var (
	// ErrTransient marks failures worth retrying: network errors, timeouts, 429 and 5xx.
	ErrTransient = errors.New("booking system temporarily unavailable")

	ErrInvalidPayload = errors.New("invalid booking payload")

	ErrUnexpectedResponse = errors.New("unexpected booking system response")
)

// IsBookingSystemError reports whether err came from the booking system or its payload
// checks rather than from local storage.
func IsBookingSystemError(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrUnexpectedResponse) || errors.Is(err, ErrInvalidPayload)
}
