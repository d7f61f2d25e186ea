// Package assertions provides declarative response checks for microtest.
//
// Supported assertions:
//   - Status code checks (Status)
//   - Header checks (Header, HeaderContains)
//   - Body content checks (BodyContains)
//   - JSON path queries via gjson (JSONPath, JSONPathExists)
//   - JSON Schema validation via gojsonschema (JSONSchema, JSONSchemaFile)
//
// Every assertion receives its own clone of the response, so reading the
// body inside an assertion never drains the stream a caller extracts later.
package assertions
