package mbo

import (
	"encoding/json"
	"fmt"
)

// RemoteError is the error body the booking system returns with a 4xx.
type RemoteError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("booking system rejected request (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("booking system rejected request (%d): %s", e.StatusCode, e.Message)
}

// Result is either Success with Data or a rejection carrying Error. Raw keeps the
// response body for audit logging.
type Result[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// Err returns the rejection as an error, or nil on success.
func (r *Result[T]) Err() error {
	if r == nil || r.Success {
		return nil
	}
	if r.Error == nil {
		return &RemoteError{Message: "unknown rejection"}
	}
	return r.Error
}

func ok[T any](data T, raw []byte) *Result[T] {
	return &Result[T]{Success: true, Data: data, Raw: rawJSON(raw)}
}

func rejected[T any](remote *RemoteError, raw []byte) *Result[T] {
	return &Result[T]{Success: false, Error: remote, Raw: rawJSON(raw)}
}

func rawJSON(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}
