package stress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects request outcomes
type Metrics struct {
	mu sync.Mutex

	total   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	startTime time.Time
	endTime   time.Time
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		// 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endTime = time.Now()
}

// Record records one request outcome
func (m *Metrics) Record(duration time.Duration, err error) {
	m.total.Add(1)
	if err != nil {
		m.errors.Add(1)
	} else {
		m.success.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	m.mu.Unlock()
}

// Summary is the aggregate of a run
type Summary struct {
	Duration time.Duration
	Total    int64
	Success  int64
	Errors   int64

	RPS       float64
	ErrorRate float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration

	// FirstError is the first failure observed, if any
	FirstError error
}

// Summary returns the aggregate so far
func (m *Metrics) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.total.Load()
	s := &Summary{
		Duration: duration,
		Total:    total,
		Success:  m.success.Load(),
		Errors:   m.errors.Load(),
	}
	if duration.Seconds() > 0 {
		s.RPS = float64(total) / duration.Seconds()
	}
	if total > 0 {
		s.ErrorRate = float64(s.Errors) / float64(total)
		s.P50 = usToDuration(m.histogram.ValueAtQuantile(50))
		s.P95 = usToDuration(m.histogram.ValueAtQuantile(95))
		s.P99 = usToDuration(m.histogram.ValueAtQuantile(99))
		s.Min = usToDuration(m.histogram.Min())
		s.Max = usToDuration(m.histogram.Max())
		s.Mean = time.Duration(m.histogram.Mean() * float64(time.Microsecond))
	}
	return s
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
