// Package driver is a single-request test driver. Each Driver describes one
// request against an application that is started when the response is first
// needed and closed once it has arrived.
//
//	text, err := driver.New(app.FromGin(engine)).
//		Get("/").
//		Status(200).
//		Text(ctx)
package driver

import (
	"context"
	"slices"
	"sync"

	"github.com/abdul-hamid-achik/microtest/packages/app"
	"github.com/abdul-hamid-achik/microtest/packages/assertions"
	"github.com/abdul-hamid-achik/microtest/packages/builder"
	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/response"
	"github.com/tidwall/gjson"
)

// Driver accumulates one request. Misuse is recorded when it happens and
// reported by Err and by every extraction method.
type Driver struct {
	app  app.Runnable
	opts []app.Option

	mu         sync.Mutex
	method     builder.Method
	path       string
	steps      []func(*builder.Builder)
	status     *int
	assertions []assertions.Assertion
	err        error

	once   sync.Once
	parser *response.Parser
}

// New creates a driver for a. opts configure the app and its runner.
func New(a app.Runnable, opts ...app.Option) *Driver {
	return &Driver{app: a, opts: opts}
}

func (d *Driver) Head(path string) *Driver    { return d.verb(builder.MethodHead, path) }
func (d *Driver) Options(path string) *Driver { return d.verb(builder.MethodOptions, path) }
func (d *Driver) Get(path string) *Driver     { return d.verb(builder.MethodGet, path) }
func (d *Driver) Patch(path string) *Driver   { return d.verb(builder.MethodPatch, path) }
func (d *Driver) Put(path string) *Driver     { return d.verb(builder.MethodPut, path) }
func (d *Driver) Post(path string) *Driver    { return d.verb(builder.MethodPost, path) }
func (d *Driver) Delete(path string) *Driver  { return d.verb(builder.MethodDelete, path) }

func (d *Driver) verb(method builder.Method, path string) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.method != "" {
		d.fail(response.Usage("can only set one method per request"))
		return d
	}
	d.method = method
	d.path = path
	return d
}

// Header sets a request header
func (d *Driver) Header(key, value string) *Driver {
	return d.step(func(b *builder.Builder) { b.Header(key, value) })
}

// Send sets a raw body
func (d *Driver) Send(body http.Body) *Driver {
	return d.step(func(b *builder.Builder) { b.Body(body) })
}

// SendJSON encodes v as the JSON body
func (d *Driver) SendJSON(v any) *Driver {
	return d.step(func(b *builder.Builder) { b.JSON(v) })
}

// Query sets the query parameters
func (d *Driver) Query(params map[string]any) *Driver {
	return d.step(func(b *builder.Builder) { b.Query(params) })
}

// TransportOptions passes per-request overrides to the transport
func (d *Driver) TransportOptions(opts ...http.Option) *Driver {
	return d.step(func(b *builder.Builder) { b.TransportOptions(opts...) })
}

// Status asserts the response status. It may be called once.
func (d *Driver) Status(expected int) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != nil {
		d.fail(response.Usage("can only assert one status per request"))
		return d
	}
	d.status = &expected
	return d
}

// Assert registers additional assertions
func (d *Driver) Assert(a ...assertions.Assertion) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assertions = append(d.assertions, a...)
	return d
}

// Err returns the first misuse recorded so far
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Raw dispatches the request on first use and returns the response
func (d *Driver) Raw(ctx context.Context) (*http.Response, error) {
	p, err := d.dispatch(ctx)
	if err != nil {
		return nil, err
	}
	return p.Raw(ctx)
}

// Text returns the response body as a string
func (d *Driver) Text(ctx context.Context) (string, error) {
	p, err := d.dispatch(ctx)
	if err != nil {
		return "", err
	}
	return p.Text(ctx)
}

// JSON decodes the response body into v
func (d *Driver) JSON(ctx context.Context, v any) error {
	p, err := d.dispatch(ctx)
	if err != nil {
		return err
	}
	return p.JSON(ctx, v)
}

// JSONPath returns the value at path in the JSON body
func (d *Driver) JSONPath(ctx context.Context, path string) (gjson.Result, error) {
	p, err := d.dispatch(ctx)
	if err != nil {
		return gjson.Result{}, err
	}
	return p.JSONPath(ctx, path)
}

func (d *Driver) step(fn func(*builder.Builder)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps = append(d.steps, fn)
	return d
}

// fail records err unless an earlier misuse was already recorded. Callers
// hold d.mu.
func (d *Driver) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Driver) dispatch(ctx context.Context) (*response.Parser, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}

	d.once.Do(func() {
		d.mu.Lock()
		method, path := d.method, d.path
		steps := slices.Clone(d.steps)
		status := d.status
		checks := slices.Clone(d.assertions)
		d.mu.Unlock()

		if method == "" {
			method = builder.MethodGet
		}

		started, err := app.WithApp(ctx, d.app, d.opts...)
		if err != nil {
			d.mu.Lock()
			d.fail(err)
			d.mu.Unlock()
			return
		}

		p := started.Runner()(func(b *builder.Builder) *builder.Builder {
			b.Verb(method, path)
			for _, s := range steps {
				s(b)
			}
			return b
		})
		if status != nil {
			p.Status(*status)
		}
		d.parser = p.Assert(checks...)
	})

	if d.parser == nil {
		return nil, d.Err()
	}
	return d.parser, nil
}
