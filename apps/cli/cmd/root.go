package cmd

import (
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "microtest",
	Short: "Fluent HTTP requests and assertions for integration tests.",
	Long: `microtest builds HTTP requests, dispatches them and checks the responses.

The Go packages are meant for integration tests. The CLI runs the same
pipeline against a live endpoint for smoke checks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run(os.Args[1:]))
}

// run executes the root command and maps its error to an exit code
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil && exitErr.code != ExitTestFailure {
			rootCmd.PrintErrln("Error:", exitErr.err)
		}
		return exitErr.code
	}
	rootCmd.PrintErrln("Error:", err)
	return ExitUsageError
}

func init() {
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return val == "yes"
		}
		return b
	}
	return defaultVal
}
