package response

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/abdul-hamid-achik/microtest/packages/assertions"
	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Hook is an after-hook. Hooks run before any assertion is evaluated.
type Hook func(ctx context.Context) error

// Parser wraps a single pending response. Hooks and assertions may be
// registered until the body is first extracted.
type Parser struct {
	future *Future

	mu         sync.Mutex
	hooks      []Hook
	assertions []assertions.Assertion
}

// New wraps f in a parser with no hooks or assertions
func New(f *Future) *Parser {
	return &Parser{future: f}
}

// AfterHook registers a hook. All hooks start together and are joined before
// assertions run; completion order among hooks is not defined.
func (p *Parser) AfterHook(h Hook) *Parser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
	return p
}

// Status registers an assertion that the response status equals expected
func (p *Parser) Status(expected int) *Parser {
	return p.Assert(assertions.Status(expected))
}

// Assert registers assertions evaluated at extraction time
func (p *Parser) Assert(a ...assertions.Assertion) *Parser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assertions = append(p.assertions, a...)
	return p
}

// Raw runs the pipeline and returns the response itself. The caller owns its
// body stream.
func (p *Parser) Raw(ctx context.Context) (*http.Response, error) {
	p.mu.Lock()
	hooks := append([]Hook(nil), p.hooks...)
	checks := append([]assertions.Assertion(nil), p.assertions...)
	p.mu.Unlock()

	resp, err := p.future.Await(ctx)

	// hooks run even when the transport failed so servers still get closed
	if hookErr := runHooks(ctx, hooks); hookErr != nil {
		return nil, errors.Join(err, hookErr)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}

	if err := runAssertions(resp, checks); err != nil {
		return nil, err
	}
	return resp, nil
}

// JSON runs the pipeline and decodes the body into v. The decode reads a
// clone; on failure the raw text is read from a second clone.
func (p *Parser) JSON(ctx context.Context, v any) error {
	resp, err := p.Raw(ctx)
	if err != nil {
		return err
	}

	data, err := resp.Clone().Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		text, _ := resp.Clone().Text()
		return &ParseError{Err: err, Body: text}
	}
	return nil
}

// DecodeJSON is JSON with the target type as a type parameter
func DecodeJSON[T any](ctx context.Context, p *Parser) (T, error) {
	var out T
	err := p.JSON(ctx, &out)
	return out, err
}

// JSONPath runs the pipeline and looks path up in the body with gjson.
func (p *Parser) JSONPath(ctx context.Context, path string) (gjson.Result, error) {
	resp, err := p.Raw(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	data, err := resp.Clone().Bytes()
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, &ParseError{Err: errors.New("invalid json"), Body: string(data)}
	}
	return gjson.GetBytes(data, path), nil
}

// Text runs the pipeline and drains the response body as text.
func (p *Parser) Text(ctx context.Context) (string, error) {
	resp, err := p.Raw(ctx)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

func runHooks(ctx context.Context, hooks []Hook) error {
	errs := make([]error, len(hooks))
	var g errgroup.Group
	for i, h := range hooks {
		i, h := i, h
		g.Go(func() error {
			errs[i] = h(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return firstError(errs)
}

func runAssertions(resp *http.Response, checks []assertions.Assertion) error {
	errs := make([]error, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		i, check := i, check
		clone := resp.Clone()
		g.Go(func() error {
			errs[i] = check(clone)
			return nil
		})
	}
	_ = g.Wait()
	return firstError(errs)
}

// firstError picks by registration order so failures are reported the same
// way on every run.
func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
