// Package response mediates between a pending response and the caller's
// extraction of its body.
//
// A Parser runs every registered after-hook (for example, shutting a test
// server down), then every registered assertion against its own clone of the
// response, and only then exposes the body as raw, JSON or text. Each
// extraction call runs the whole pipeline again.
package response
