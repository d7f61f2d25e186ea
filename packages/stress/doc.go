// Package stress repeats a request function under a rate limit and bounded
// concurrency and summarizes the latencies with an HDR histogram.
package stress
