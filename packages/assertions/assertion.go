package assertions

import (
	"fmt"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/fatih/color"
)

// Assertion checks a response and returns an error when it is not met.
// The response is a clone owned by the assertion.
type Assertion func(resp *http.Response) error

// Error is a failed expectation. It carries both sides of the comparison.
type Error struct {
	Message  string
	Expected any
	Received any
}

func (e *Error) Error() string {
	return Format(e.Message, e.Expected, e.Received)
}

// Fail builds an *Error
func Fail(message string, expected, received any) error {
	return &Error{Message: message, Expected: expected, Received: received}
}

// Format renders a failed expectation. Colors are dropped automatically when
// output is not a terminal or color.NoColor is set.
func Format(message string, expected, received any) string {
	green := color.New(color.Bold, color.FgGreen).SprintFunc()
	red := color.New(color.Bold, color.FgRed).SprintFunc()

	return fmt.Sprintf("microtest: %s:\n\t%s\n\t%s",
		message,
		green(fmt.Sprintf("Expected %v", expected)),
		red(fmt.Sprintf("Received %v", received)),
	)
}
