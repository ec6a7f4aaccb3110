package llmclient

import (
	"errors"
	"fmt"
)

var ErrEmptyResponse = errors.New("empty response from model")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// RateLimitedError marks a single rate-limited call. The retry layer matches
// it to decide whether another attempt is worth making.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string { return fmt.Sprintf("rate limited: %v", e.Err) }
func (e *RateLimitedError) Unwrap() error { return e.Err }
