// Package http provides the transport microtest dispatches resolved requests through.
//
// It wraps go-resty with the pieces a test helper needs:
//   - Configurable timeouts and redirect handling
//   - Per-request transport overrides (Options)
//   - Discriminated request payloads (raw, text, JSON, multipart form)
//   - Buffered responses whose bodies can be cloned and read independently
package http
