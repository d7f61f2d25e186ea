package response

import (
	"context"

	"github.com/abdul-hamid-achik/microtest/packages/http"
)

// Future is a single-resolution pending response.
type Future struct {
	done chan struct{}
	resp *http.Response
	err  error
}

// NewFuture starts fn immediately and resolves once it returns.
func NewFuture(fn func() (*http.Response, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.resp, f.err = fn()
	}()
	return f
}

// Resolved returns a future that is already settled
func Resolved(resp *http.Response, err error) *Future {
	f := &Future{done: make(chan struct{}), resp: resp, err: err}
	close(f.done)
	return f
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (*http.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
