package response

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mhttp "github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(status int, body string) *Future {
	return NewFuture(func() (*mhttp.Response, error) {
		return mhttp.NewResponse(status, http.StatusText(status), nil, []byte(body), 0), nil
	})
}

func TestParser_Raw(t *testing.T) {
	resp, err := New(pending(200, "ok")).Raw(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, resp.BodyUsed())
}

func TestParser_Text(t *testing.T) {
	text, err := New(pending(200, "Hello, World")).Text(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Hello, World", text)
}

func TestParser_JSON(t *testing.T) {
	var out struct {
		Foo string `json:"foo"`
	}
	err := New(pending(200, `{"foo":"bar"}`)).JSON(context.Background(), &out)

	require.NoError(t, err)
	assert.Equal(t, "bar", out.Foo)
}

func TestDecodeJSON(t *testing.T) {
	out, err := DecodeJSON[map[string]any](context.Background(), New(pending(200, `{"n": 1}`)))

	require.NoError(t, err)
	assert.Equal(t, float64(1), out["n"])
}

func TestParser_JSONParseFailureIncludesBody(t *testing.T) {
	var out any
	err := New(pending(200, "Hello, World")).JSON(context.Background(), &out)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "Hello, World", parseErr.Body)
	assert.Contains(t, err.Error(), "unable to parse response as json")
	assert.Contains(t, err.Error(), "Hello, World")
}

func TestParser_JSONLeavesCanonicalBodyUnread(t *testing.T) {
	p := New(pending(200, `{"a":1}`))

	var out any
	require.NoError(t, p.JSON(context.Background(), &out))

	resp, err := p.Raw(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.BodyUsed())
}

func TestParser_JSONPath(t *testing.T) {
	p := New(pending(200, `{"user":{"name":"John"}}`))

	result, err := p.JSONPath(context.Background(), "user.name")
	require.NoError(t, err)
	assert.Equal(t, "John", result.String())

	_, err = New(pending(200, "nope")).JSONPath(context.Background(), "a")
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParser_StatusAssertion(t *testing.T) {
	_, err := New(pending(404, "missing")).Status(200).Text(context.Background())

	var assertionErr *AssertionError
	require.True(t, errors.As(err, &assertionErr))
	assert.Equal(t, 200, assertionErr.Expected)
	assert.Equal(t, 404, assertionErr.Received)
	assert.Contains(t, err.Error(), "failed status code check")
	assert.Contains(t, err.Error(), "200")
	assert.Contains(t, err.Error(), "404")
}

func TestParser_StatusAssertionPasses(t *testing.T) {
	text, err := New(pending(404, "missing")).Status(404).Text(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "missing", text)
}

func TestParser_AssertionsReadClones(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	drain := func(resp *mhttp.Response) error {
		text, err := resp.Text()
		mu.Lock()
		seen = append(seen, text)
		mu.Unlock()
		return err
	}

	text, err := New(pending(200, "body")).Assert(drain, drain).Text(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "body", text)
	assert.Equal(t, []string{"body", "body"}, seen)
}

func TestParser_HooksRunBeforeAssertions(t *testing.T) {
	var hooksDone atomic.Int32
	p := New(pending(200, "ok"))
	for i := 0; i < 3; i++ {
		p.AfterHook(func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			hooksDone.Add(1)
			return nil
		})
	}
	p.Assert(func(resp *mhttp.Response) error {
		assert.Equal(t, int32(3), hooksDone.Load())
		return nil
	})

	_, err := p.Raw(context.Background())
	require.NoError(t, err)
}

func TestParser_HooksRunConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(ctx context.Context) error {
		wg.Done()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(time.Second):
			return errors.New("hooks did not run concurrently")
		}
	}

	_, err := New(pending(200, "ok")).AfterHook(barrier).AfterHook(barrier).Raw(context.Background())
	assert.NoError(t, err)
}

func TestParser_HookFailureStopsPipeline(t *testing.T) {
	var asserted bool
	p := New(pending(200, "ok")).
		AfterHook(func(ctx context.Context) error { return errors.New("close failed") }).
		Assert(func(*mhttp.Response) error {
			asserted = true
			return nil
		})

	_, err := p.Raw(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
	assert.False(t, asserted)
}

func TestParser_HooksRunOnTransportFailure(t *testing.T) {
	var ran bool
	p := New(Resolved(nil, errors.New("connection refused"))).
		AfterHook(func(ctx context.Context) error {
			ran = true
			return nil
		})

	_, err := p.Raw(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, ran)
}

func TestParser_NilResponseWithoutError(t *testing.T) {
	var ran bool
	p := New(Resolved(nil, nil)).
		Status(200).
		AfterHook(func(ctx context.Context) error {
			ran = true
			return nil
		})

	_, err := p.Text(context.Background())
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.True(t, ran)
}

func TestParser_EveryExtractionRerunsPipeline(t *testing.T) {
	var hooks, checks atomic.Int32
	p := New(pending(200, `{"a":1}`)).
		AfterHook(func(ctx context.Context) error {
			hooks.Add(1)
			return nil
		}).
		Assert(func(*mhttp.Response) error {
			checks.Add(1)
			return nil
		})

	ctx := context.Background()
	_, err := p.Raw(ctx)
	require.NoError(t, err)
	var out any
	require.NoError(t, p.JSON(ctx, &out))
	_, err = p.Text(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(3), hooks.Load())
	assert.Equal(t, int32(3), checks.Load())

	// the canonical stream was drained by Text
	_, err = p.Text(ctx)
	assert.ErrorIs(t, err, mhttp.ErrBodyUsed)
}

func TestParser_AwaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	f := NewFuture(func() (*mhttp.Response, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(f).Raw(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUsageError(t *testing.T) {
	err := Usage("can only assert one status per request")
	assert.Equal(t, "microtest: can only assert one status per request", err.Error())
}
