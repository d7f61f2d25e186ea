// Package output renders the outcome of a single request for the CLI.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
package output
