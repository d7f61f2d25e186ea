// Package cmd implements the microtest CLI commands using Cobra.
//
// Available commands:
//   - request: Send one request through the microtest pipeline and check it
//   - mock: Serve canned replies from a YAML route file
//   - init: Write a starter .microtest.yaml
//   - version: Show microtest version information
package cmd
