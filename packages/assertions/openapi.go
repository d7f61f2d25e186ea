package assertions

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/getkin/kin-openapi/openapi3"
)

// LoadOpenAPI loads and validates an OpenAPI 3 document from a file
func LoadOpenAPI(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// OpenAPIResponse fails unless the response matches what doc declares for
// method on the path template (for example "/users/{id}"): the status must be
// documented, either explicitly or by a default response, and a JSON body
// must satisfy the declared schema.
func OpenAPIResponse(doc *openapi3.T, method, pathTemplate string) Assertion {
	return func(resp *http.Response) error {
		if doc == nil || doc.Paths == nil {
			return Fail("failed openapi check", "a document with paths", "none")
		}
		item := doc.Paths.Find(pathTemplate)
		if item == nil {
			return Fail("failed openapi check", "documented path "+pathTemplate, "<missing>")
		}
		op := item.GetOperation(strings.ToUpper(method))
		if op == nil || op.Responses == nil {
			return Fail(fmt.Sprintf("failed openapi check for %s", pathTemplate), "documented operation "+strings.ToUpper(method), "<missing>")
		}

		ref := op.Responses.Status(resp.StatusCode)
		if ref == nil {
			ref = op.Responses.Default()
		}
		if ref == nil || ref.Value == nil {
			return Fail(fmt.Sprintf("failed openapi check for %s %s", strings.ToUpper(method), pathTemplate), "a documented status", resp.StatusCode)
		}
		if len(ref.Value.Content) == 0 {
			return nil
		}

		mediaType, _, err := mime.ParseMediaType(resp.ContentType())
		if err != nil {
			mediaType = resp.ContentType()
		}
		media := ref.Value.Content.Get(mediaType)
		if media == nil {
			return Fail(fmt.Sprintf("failed openapi content type check for %s %s", strings.ToUpper(method), pathTemplate),
				strings.Join(contentTypes(ref.Value.Content), ", "), mediaType)
		}
		if media.Schema == nil || media.Schema.Value == nil || !strings.Contains(mediaType, "json") {
			return nil
		}

		body, err := resp.Bytes()
		if err != nil {
			return err
		}
		schemaCheck := fmt.Sprintf("failed openapi schema check for %s %s", strings.ToUpper(method), pathTemplate)
		var value any
		if err := json.Unmarshal(body, &value); err != nil {
			return Fail(schemaCheck, "a JSON body", err.Error())
		}
		if err := media.Schema.Value.VisitJSON(value); err != nil {
			return Fail(schemaCheck, "body matching schema", err.Error())
		}
		return nil
	}
}

func contentTypes(content openapi3.Content) []string {
	types := make([]string, 0, len(content))
	for ct := range content {
		types = append(types, ct)
	}
	return types
}
