// Package config handles configuration loading and management for microtest.
//
// It provides functionality for:
//   - Loading configuration from .microtest.json or .microtest.yaml files
//   - Default configuration values
//   - MICROTEST_* environment overrides, optionally read from a .env file
//   - {{$VAR}} expansion in base URLs and header values
package config
