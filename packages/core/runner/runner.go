package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/builder"
	"github.com/abdul-hamid-achik/microtest/packages/core/config"
	"github.com/abdul-hamid-achik/microtest/packages/core/log"
	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/query"
	"github.com/abdul-hamid-achik/microtest/packages/response"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id stamped by WithRequestID
const RequestIDHeader = "X-Request-Id"

// Func describes and dispatches one request. A callback returning nil keeps
// the builder it was given.
type Func func(fn func(*builder.Builder) *builder.Builder) *response.Parser

// Runner holds the settings shared by every request it dispatches.
type Runner struct {
	baseURL       string
	parser        query.Parser
	transport     http.Transport
	clientOptions []http.ClientOption
	logger        logrus.FieldLogger
	hooks         []response.Hook
	headers       map[string]string
	requestID     bool
	err           error
}

// Option configures a Runner
type Option func(*Runner)

// WithQueryParser replaces the query encoder used at resolve time
func WithQueryParser(p query.Parser) Option {
	return func(r *Runner) {
		r.parser = p
	}
}

// WithTransport replaces the default resty-backed client
func WithTransport(t http.Transport) Option {
	return func(r *Runner) {
		r.transport = t
	}
}

// WithClientOptions configures the default client. Ignored when WithTransport
// is also given.
func WithClientOptions(opts ...http.ClientOption) Option {
	return func(r *Runner) {
		r.clientOptions = append(r.clientOptions, opts...)
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithAfterHook registers a hook on every pipeline the runner creates
func WithAfterHook(h response.Hook) Option {
	return func(r *Runner) {
		r.hooks = append(r.hooks, h)
	}
}

// WithDefaultHeaders seeds every builder with headers. The callback may
// override them.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(r *Runner) {
		if r.headers == nil {
			r.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			r.headers[k] = v
		}
	}
}

// WithRequestID stamps each request with a random X-Request-Id unless the
// callback sets one.
func WithRequestID(enabled bool) Option {
	return func(r *Runner) {
		r.requestID = enabled
	}
}

// WithConfig applies a loaded configuration. cfg.BaseURL is used only when
// New was given an empty base URL, and unset booleans leave earlier options
// in place.
func WithConfig(cfg *config.Config) Option {
	return func(r *Runner) {
		if cfg == nil {
			return
		}
		if r.baseURL == "" {
			r.baseURL = cfg.BaseURL
		}
		if cfg.QueryFormat != "" {
			p, err := query.Named(cfg.QueryFormat)
			if err != nil {
				r.err = err
			} else {
				r.parser = p
			}
		}
		if len(cfg.Headers) > 0 {
			WithDefaultHeaders(cfg.Headers)(r)
		}
		if cfg.RequestID != nil {
			r.requestID = *cfg.RequestID
		}
		if cfg.GetVerbose() && r.logger == nil {
			r.logger = log.New(log.Properties{Verbose: true})
		}

		if cfg.Timeout > 0 {
			r.clientOptions = append(r.clientOptions, http.WithTimeout(time.Duration(cfg.Timeout)*time.Millisecond))
		}
		if cfg.MaxRedirects > 0 {
			r.clientOptions = append(r.clientOptions, http.WithMaxRedirects(cfg.MaxRedirects))
		}
		if cfg.FollowRedirects != nil {
			r.clientOptions = append(r.clientOptions, http.WithFollowRedirects(*cfg.FollowRedirects))
		}
		if cfg.ValidateSSL != nil {
			r.clientOptions = append(r.clientOptions, http.WithValidateSSL(*cfg.ValidateSSL))
		}
	}
}

// NewRunner applies opts and fills in defaults
func NewRunner(baseURL string, opts ...Option) *Runner {
	r := &Runner{baseURL: baseURL}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = log.Discard()
	}
	r.logger = log.ForComponent(r.logger, "runner")
	if r.transport == nil {
		clientOpts := append([]http.ClientOption{http.WithLogger(r.logger)}, r.clientOptions...)
		r.transport = http.NewClient(clientOpts...)
	}

	return r
}

// New creates a runner and returns its request function
func New(baseURL string, opts ...Option) Func {
	return NewRunner(baseURL, opts...).Request
}

// BaseURL returns the URL every request is resolved against
func (r *Runner) BaseURL() string {
	return r.baseURL
}

// Request builds, resolves and dispatches one request. Resolution errors
// surface from the returned parser's extraction methods.
func (r *Runner) Request(fn func(*builder.Builder) *builder.Builder) *response.Parser {
	b := builder.New(r.baseURL, r.parser)
	if len(r.headers) > 0 {
		b.Headers(r.headers)
	}
	if fn != nil {
		if next := fn(b); next != nil {
			b = next
		}
	}

	var future *response.Future
	if r.err != nil {
		future = response.Resolved(nil, r.err)
	} else if resolved, err := b.Resolve(); err != nil {
		future = response.Resolved(nil, fmt.Errorf("resolving request: %w", err))
	} else {
		future = r.dispatch(resolved)
	}

	p := response.New(future)
	for _, h := range r.hooks {
		p.AfterHook(h)
	}
	return p
}

func (r *Runner) dispatch(resolved *builder.Resolved) *response.Future {
	opts := resolved.Options
	if r.requestID {
		if _, ok := opts.Headers[RequestIDHeader]; !ok {
			opts = opts.Clone()
			if opts.Headers == nil {
				opts.Headers = make(map[string]string, 1)
			}
			opts.Headers[RequestIDHeader] = uuid.NewString()
		}
	}

	method := opts.Method
	if method == "" {
		method = string(builder.MethodGet)
	}
	entry := r.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    resolved.URL,
	})
	if id, ok := opts.Headers[RequestIDHeader]; ok {
		entry = entry.WithField("request_id", id)
	}
	entry.Debug("dispatching request")

	return response.NewFuture(func() (*http.Response, error) {
		resp, err := r.transport.Do(context.Background(), resolved.URL, opts)
		if err != nil {
			entry.WithError(err).Debug("request failed")
			return nil, fmt.Errorf("%s %s: %w", method, resolved.URL, err)
		}
		entry.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"duration": resp.Duration,
		}).Debug("request completed")
		return resp, nil
	})
}
