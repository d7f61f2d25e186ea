package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// truncate shortens long bodies for display
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	maxBody int
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:  os.Stdout,
		maxBody: 2000,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithMaxBody limits how much of the body is printed. Zero prints all of it.
func WithMaxBody(n int) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.maxBody = n
	}
}

func (f *ConsoleFormatter) FormatResult(r *Result) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	symbol := green("✓")
	if !r.Passed() {
		symbol = red("✗")
	}
	fmt.Fprintf(f.writer, "%s %s %s", symbol, bold(r.Method), r.URL)
	if r.Response != nil {
		fmt.Fprintf(f.writer, " %s %s", r.Response.Status, cyan(fmt.Sprintf("(%dms)", r.Response.DurationMs())))
	}
	fmt.Fprintln(f.writer)

	if r.Err != nil {
		fmt.Fprintf(f.writer, "  %s %v\n", red(r.Kind()+":"), r.Err)
	}

	if f.verbose && r.Response != nil {
		keys := make([]string, 0, len(r.Response.Header))
		for k := range r.Response.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(f.writer, "  %s: %s\n", k, strings.Join(r.Response.Header[k], ", "))
		}
	}

	if r.Body != "" {
		fmt.Fprintf(f.writer, "\n%s\n", truncate(r.Body, f.maxBody))
	}
	return nil
}

// FormatError prints an error that happened before any request was made
func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}
