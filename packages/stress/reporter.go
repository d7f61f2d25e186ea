package stress

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Report writes a human-readable summary
func Report(w io.Writer, s *Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Summary"))
	fmt.Fprintf(w, "  Requests:  %d in %s (%.1f/s)\n", s.Total, formatDuration(s.Duration), s.RPS)

	status := green(fmt.Sprintf("%d passed", s.Success))
	if s.Errors > 0 {
		status += ", " + red(fmt.Sprintf("%d failed (%.1f%%)", s.Errors, s.ErrorRate*100))
	}
	fmt.Fprintf(w, "  Results:   %s\n", status)

	if s.Total > 0 {
		fmt.Fprintf(w, "  Latency:   min %s  mean %s  max %s\n", formatLatency(s.Min), formatLatency(s.Mean), formatLatency(s.Max))
		fmt.Fprintf(w, "             p50 %s  p95 %s  p99 %s\n", formatLatency(s.P50), formatLatency(s.P95), formatLatency(s.P99))
	}
	if s.FirstError != nil {
		fmt.Fprintf(w, "  First error: %v\n", s.FirstError)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
}
