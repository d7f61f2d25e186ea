package response

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/microtest/packages/assertions"
)

// ErrNoResponse is returned when a transport reports neither a response nor
// an error.
var ErrNoResponse = errors.New("transport returned no response")

// AssertionError is a registered expectation the response did not meet.
type AssertionError = assertions.Error

// UsageError reports misuse of the fluent API.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return "microtest: " + e.Message
}

// Usage builds a *UsageError
func Usage(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ParseError is a body that could not be decoded as JSON. Body holds the raw
// text for diagnosis.
type ParseError struct {
	Err  error
	Body string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("microtest#json: unable to parse response as json.\n\tError: %v\n\tResponse: %s", e.Err, e.Body)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
