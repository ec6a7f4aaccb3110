// Package docai turns source documents (PDF, images, spreadsheets) into
// markdown via a hosted document-parsing service. A MockParser covers
// offline runs and tests.
package docai

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Parser converts one document into markdown.
type Parser interface {
	Parse(ctx context.Context, filename string, doc io.Reader) (string, error)
}

// ErrUnavailable reports that the parse service is not accepting calls,
// either because the circuit breaker is open or the service is probing.
var ErrUnavailable = errors.New("docai: parse service unavailable")

// ErrNoMarkdown reports a well-formed parse response with no markdown body.
var ErrNoMarkdown = errors.New("docai: parse response carries no markdown")

// ParseError is a non-2xx answer from the parse endpoint.
type ParseError struct {
	Status int
	Body   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("docai: parse failed with status %d: %s", e.Status, e.Body)
}
