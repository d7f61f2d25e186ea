package assertions

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Status fails unless the response status equals expected
func Status(expected int) Assertion {
	return func(resp *http.Response) error {
		if resp.StatusCode != expected {
			return Fail("failed status code check", expected, resp.StatusCode)
		}
		return nil
	}
}

// Header fails unless the named header equals expected
func Header(key, expected string) Assertion {
	return func(resp *http.Response) error {
		actual := resp.HeaderValue(key)
		if actual != expected {
			return Fail(fmt.Sprintf("failed header check for %s", key), expected, actual)
		}
		return nil
	}
}

// HeaderContains fails unless the named header contains substr
func HeaderContains(key, substr string) Assertion {
	return func(resp *http.Response) error {
		actual := resp.HeaderValue(key)
		if !strings.Contains(actual, substr) {
			return Fail(fmt.Sprintf("failed header check for %s", key), "to contain "+substr, actual)
		}
		return nil
	}
}

// BodyContains fails unless the body contains substr
func BodyContains(substr string) Assertion {
	return func(resp *http.Response) error {
		body, err := resp.Text()
		if err != nil {
			return err
		}
		if !strings.Contains(body, substr) {
			return Fail("failed body check", "to contain "+substr, body)
		}
		return nil
	}
}

// JSONPath fails unless the gjson path exists and equals expected. Numbers
// compare by value, so 3 matches 3.0.
func JSONPath(path string, expected any) Assertion {
	return func(resp *http.Response) error {
		result, err := lookup(resp, path)
		if err != nil {
			return err
		}
		if !result.Exists() {
			return Fail(fmt.Sprintf("failed json path check for %s", path), expected, "<missing>")
		}
		if !equals(result.Value(), expected) {
			return Fail(fmt.Sprintf("failed json path check for %s", path), expected, result.Value())
		}
		return nil
	}
}

// JSONPathExists fails unless the gjson path resolves to a value
func JSONPathExists(path string) Assertion {
	return func(resp *http.Response) error {
		result, err := lookup(resp, path)
		if err != nil {
			return err
		}
		if !result.Exists() {
			return Fail(fmt.Sprintf("failed json path check for %s", path), "to exist", "<missing>")
		}
		return nil
	}
}

func lookup(resp *http.Response, path string) (gjson.Result, error) {
	body, err := resp.Bytes()
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, Fail("response body is not JSON", "valid JSON", string(body))
	}
	return gjson.GetBytes(body, path), nil
}

// JSONSchema validates the body against an inline JSON schema document
func JSONSchema(schema string) Assertion {
	return func(resp *http.Response) error {
		return validateSchema(gojsonschema.NewStringLoader(schema), resp)
	}
}

// JSONSchemaFile validates the body against a schema read from path
func JSONSchemaFile(path string) Assertion {
	return func(resp *http.Response) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		return validateSchema(gojsonschema.NewBytesLoader(data), resp)
	}
}

func validateSchema(schema gojsonschema.JSONLoader, resp *http.Response) error {
	body, err := resp.Bytes()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return Fail("failed json schema check", "a document matching the schema", strings.Join(problems, "; "))
}
