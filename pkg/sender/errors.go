package sender

import (
	"errors"
	"fmt"
)

var ErrMissingIdentity = errors.New("alertover source and receiver are required")

// TransportError describes a single failed attempt: either the request
// could not be completed or the API answered with a non-2xx status.
type TransportError struct {
	Attempt    int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("attempt %d: API returned non-2xx status: %d", e.Attempt, e.StatusCode)
	}
	return fmt.Sprintf("attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeliveryError is returned when no attempt succeeded.
// Err is the error of the last attempt made.
type DeliveryError struct {
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver notification after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
