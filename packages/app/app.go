package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/microtest/packages/builder"
	"github.com/abdul-hamid-achik/microtest/packages/core/log"
	"github.com/abdul-hamid-achik/microtest/packages/core/runner"
	"github.com/abdul-hamid-achik/microtest/packages/response"
	"github.com/sirupsen/logrus"
)

// ListenAddr is where WithApp starts applications. The kernel picks the port.
const ListenAddr = "127.0.0.1:0"

// App is a started application and the runner bound to it
type App struct {
	handle  Handle
	port    int
	baseURL string
	runner  *runner.Runner
	logger  logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

type options struct {
	logger     logrus.FieldLogger
	runnerOpts []runner.Option
}

// Option configures WithApp
type Option func(*options)

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRunnerOptions forwards options to the runner bound to the app
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(o *options) {
		o.runnerOpts = append(o.runnerOpts, opts...)
	}
}

// WithApp starts app on a local ephemeral port and binds a runner to it. The
// application is started exactly once; every request made through the runner
// closes it once its response has arrived.
func WithApp(ctx context.Context, app Runnable, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}
	logger := log.ForComponent(o.logger, "app")

	started, err := app.Listen(ctx, ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("starting app: %w", err)
	}
	handle := Unwrap(started)

	port, err := DeterminePort(handle)
	if err != nil {
		if handle != nil {
			_ = handle.Close(context.Background())
		}
		return nil, err
	}

	a := &App{
		handle:  handle,
		port:    port,
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		logger:  logger.WithField("port", port),
	}
	runnerOpts := append([]runner.Option{runner.WithLogger(o.logger)}, o.runnerOpts...)
	runnerOpts = append(runnerOpts, runner.WithAfterHook(a.Close))
	a.runner = runner.NewRunner(a.baseURL, runnerOpts...)

	a.logger.Debug("app listening")
	return a, nil
}

// Port returns the port the app is bound to
func (a *App) Port() int {
	return a.port
}

// BaseURL returns the root URL of the running app
func (a *App) BaseURL() string {
	return a.baseURL
}

// Runner returns the request function bound to the app. Requests made after
// the app has closed fail with a *response.UsageError instead of dialing a
// dead port.
func (a *App) Runner() runner.Func {
	return func(fn func(*builder.Builder) *builder.Builder) *response.Parser {
		if a.closed.Load() {
			return response.New(response.Resolved(nil, response.Usage("app at %s is already closed", a.baseURL))).
				AfterHook(a.Close)
		}
		return a.runner.Request(fn)
	}
}

// Close shuts the app down. It is safe to call more than once; the server is
// closed only the first time.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		a.closeErr = a.handle.Close(ctx)
		if a.closeErr != nil {
			a.logger.WithError(a.closeErr).Warn("closing app")
			return
		}
		a.logger.Debug("app closed")
	})
	return a.closeErr
}

// Closed reports whether Close has run
func (a *App) Closed() bool {
	return a.closed.Load()
}
