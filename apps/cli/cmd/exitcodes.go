package cmd

// Exit codes for the microtest CLI
const (
	// ExitSuccess indicates the request passed
	ExitSuccess = 0

	// ExitTestFailure indicates an assertion failed
	ExitTestFailure = 1

	// ExitParseError indicates the body could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}
