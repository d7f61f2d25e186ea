// Package query turns query parameter mappings into query strings.
//
// Encoding is a pluggable strategy (Parser). DefaultParser favors readable
// fixtures over strict URL safety:
//   - Values are not percent-encoded
//   - Slices are comma-joined (a=1,2,3)
//   - Nested maps use bracket keys (a[b]=c)
//
// Parsers never add the leading "?".
package query
