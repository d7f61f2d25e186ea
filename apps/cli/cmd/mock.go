package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/app"
	"github.com/abdul-hamid-achik/microtest/packages/core/log"
	"github.com/abdul-hamid-achik/microtest/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag    int
	mockHostFlag    string
	mockDelayFlag   string
	mockVerboseFlag bool
)

var mockCmd = &cobra.Command{
	Use:   "mock <routes.yaml>...",
	Short: "Start a mock server from YAML route files",
	Long: `Start an HTTP mock server that serves canned replies.

Route files list method, path, status, headers and a body or json value.
Path segments written {{name}} match any segment and can be echoed back in
the body.

Examples:
  microtest mock routes.yaml
  microtest mock routes.yaml --port 3000 --delay 100ms`,
	Args: cobra.MinimumNArgs(1),
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", 3000, "Port to run the mock server on")
	mockCmd.Flags().StringVar(&mockHostFlag, "host", "127.0.0.1", "Interface to bind")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	logger := log.New(log.Properties{Verbose: mockVerboseFlag, Output: cmd.ErrOrStderr()})
	server := mock.NewServer(mock.WithDelay(delay), mock.WithLogger(logger))
	for _, path := range args {
		if err := server.LoadFile(path); err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("failed to load routes: %w", err))
		}
	}

	routes := server.Routes()
	if len(routes) == 0 {
		return withExitCode(ExitConfigError, fmt.Errorf("no routes found in the provided files"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(mockHostFlag, strconv.Itoa(mockPortFlag))
	s, err := app.Serve(ctx, addr, server)
	if err != nil {
		return withExitCode(ExitNetworkError, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mock server listening on http://%s (%d routes)\n", s.Addr(), len(routes))
	for _, route := range routes {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s -> %d\n", route.Method, route.PathPattern, route.Reply.StatusCode)
	}

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down mock server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	return s.Close(shutdownCtx)
}
