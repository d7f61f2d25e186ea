package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/response"
)

// Result is the outcome of one request as seen by the CLI
type Result struct {
	Method   string
	URL      string
	Response *http.Response
	Body     string
	Err      error
}

// Passed reports whether the request completed and met every assertion
func (r *Result) Passed() bool {
	return r.Err == nil
}

// Kind classifies the failure for display and exit codes: "assertion",
// "parse", "usage", "transport" or "" when the request passed.
func (r *Result) Kind() string {
	if r.Err == nil {
		return ""
	}
	var (
		assertionErr *response.AssertionError
		parseErr     *response.ParseError
		usageErr     *response.UsageError
	)
	switch {
	case errors.As(r.Err, &assertionErr):
		return "assertion"
	case errors.As(r.Err, &parseErr):
		return "parse"
	case errors.As(r.Err, &usageErr):
		return "usage"
	default:
		return "transport"
	}
}

// Duration returns the response time, or zero without a response
func (r *Result) Duration() time.Duration {
	if r.Response == nil {
		return 0
	}
	return r.Response.Duration
}

// Formatter renders results
type Formatter interface {
	FormatResult(result *Result) error
}

// New returns the formatter registered under name
func New(name string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (expected console or json)", name)
	}
}
