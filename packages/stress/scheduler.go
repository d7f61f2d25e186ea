package stress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config controls a run
type Config struct {
	// Count is how many times the request is made
	Count int
	// Rate caps requests per second; zero means unlimited
	Rate float64
	// Concurrency bounds in-flight requests; zero means one
	Concurrency int
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %v", c.Rate)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// RequestFunc makes one request and reports how long the server took.
// A non-nil error counts as a failed request, not a failed run.
type RequestFunc func(ctx context.Context) (time.Duration, error)

// Run calls fn cfg.Count times and summarizes the outcomes. It stops early
// only when ctx is done.
func Run(ctx context.Context, cfg Config, fn RequestFunc) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	metrics := NewMetrics()
	var (
		firstErr error
		errOnce  sync.Once
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	metrics.Start()
	for i := 0; i < cfg.Count; i++ {
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d, err := fn(gctx)
			metrics.Record(d, err)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
			}
			return nil
		})
	}
	_ = g.Wait()
	metrics.Stop()

	summary := metrics.Summary()
	summary.FirstError = firstErr
	return summary, ctx.Err()
}
