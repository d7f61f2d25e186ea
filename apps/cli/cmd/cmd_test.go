package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/microtest/packages/mock"
	"github.com/abdul-hamid-achik/microtest/packages/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	reqFlags = requestFlags{}
	forceInit, initDir = false, "."

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	code := run(args)
	return code, stdout.String(), stderr.String()
}

func newMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := mock.NewServer().
		Text("GET", "/health", http.StatusOK, "ok").
		JSON("GET", "/users/{{id}}", http.StatusOK, map[string]any{"id": "{{id}}", "active": true}).
		JSON("POST", "/users", http.StatusCreated, map[string]string{"id": "42"})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	code, out, _ := execute(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "microtest version dev")
}

func TestRequest_Passes(t *testing.T) {
	srv := newMockServer(t)

	code, out, _ := execute(t, "request", "get", srv.URL+"/health", "--expect-status", "200", "--expect-body", "ok", "--no-color")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✓ GET "+srv.URL+"/health 200 OK")
}

func TestRequest_AssertionFailure(t *testing.T) {
	srv := newMockServer(t)

	code, out, _ := execute(t, "request", "GET", srv.URL+"/health", "--expect-status", "201", "--no-color")

	assert.Equal(t, ExitTestFailure, code)
	assert.Contains(t, out, "assertion:")
	assert.Contains(t, out, "Expected 201")
}

func TestRequest_JSONOutput(t *testing.T) {
	srv := newMockServer(t)

	code, out, _ := execute(t, "request", "GET", srv.URL+"/users/7",
		"--expect-json", "id=7",
		"--expect-json", "active=true",
		"-o", "json")

	require.Equal(t, ExitSuccess, code, out)
	var result output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Response.StatusCode)
}

func TestRequest_PostJSON(t *testing.T) {
	srv := newMockServer(t)

	code, _, _ := execute(t, "request", "POST", srv.URL+"/users", "--json", `{"name":"ada"}`, "--expect-status", "201", "--expect-json", `id="42"`, "--no-color")
	assert.Equal(t, ExitSuccess, code)
}

func TestRequest_RelativePathUsesConfig(t *testing.T) {
	srv := newMockServer(t)
	configPath := filepath.Join(t.TempDir(), "microtest.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"baseURL": "`+srv.URL+`"}`), 0644))

	code, _, _ := execute(t, "request", "GET", "/health", "--config", configPath, "--expect-status", "200", "--no-color")
	assert.Equal(t, ExitSuccess, code)
}

func TestRequest_UsageErrors(t *testing.T) {
	code, _, errOut := execute(t, "request", "TRACE", "http://localhost/")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "unsupported method")

	code, _, _ = execute(t, "request", "GET", "/relative")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = execute(t, "request", "GET", "http://localhost/", "-H", "no-colon")
	assert.Equal(t, ExitUsageError, code)
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	code, _, _ := execute(t, "request", "GET", url+"/", "--no-color", "--timeout", "2s")
	assert.Equal(t, ExitNetworkError, code)
}

func TestSplitTarget(t *testing.T) {
	base, path, params, err := splitTarget("http://api.test/users?id=1&id=2&q=a%20b", "")
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", base)
	assert.Equal(t, "/users", path)
	require.Len(t, params, 2)
	assert.Equal(t, []string{"1", "2"}, params[0].Value)
	assert.Equal(t, "a b", params[1].Value)

	base, path, _, err = splitTarget("users/1", "http://api.test/v1/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", base)
	assert.Equal(t, "/v1/users/1", path)
}

func TestParseExpected(t *testing.T) {
	assert.Equal(t, true, parseExpected("true"))
	assert.Equal(t, float64(3), parseExpected("3"))
	assert.Nil(t, parseExpected("null"))
	assert.Equal(t, "42", parseExpected(`"42"`))
	assert.Equal(t, "ada", parseExpected("ada"))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	code, out, _ := execute(t, "init", "--dir", dir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "microtest initialized!")
	assert.FileExists(t, filepath.Join(dir, ".microtest.yaml"))
	assert.FileExists(t, filepath.Join(dir, "mock-routes.yaml"))

	code, _, _ = execute(t, "init", "--dir", dir)
	assert.Equal(t, ExitUsageError, code)

	routes := mock.NewServer()
	require.NoError(t, routes.LoadFile(filepath.Join(dir, "mock-routes.yaml")))
	assert.Len(t, routes.Routes(), 3)
}

func TestRequest_Repeat(t *testing.T) {
	srv := newMockServer(t)

	code, out, _ := execute(t, "request", "GET", srv.URL+"/health", "--repeat", "5", "--concurrency", "2", "--expect-status", "200", "--no-color")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Requests:  5 in")
	assert.Contains(t, out, "5 passed")
}

func TestRequest_RepeatReportsFailures(t *testing.T) {
	srv := newMockServer(t)

	code, out, _ := execute(t, "request", "GET", srv.URL+"/health", "--repeat", "3", "--expect-status", "204", "--no-color")

	assert.Equal(t, ExitTestFailure, code)
	assert.Contains(t, out, "3 failed")
	assert.Contains(t, out, "First error:")
}

func TestRequest_OpenAPI(t *testing.T) {
	srv := newMockServer(t)
	doc := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`openapi: 3.0.3
info: {title: users, version: "1"}
paths:
  /users/{id}:
    get:
      parameters:
        - {name: id, in: path, required: true, schema: {type: string}}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                required: [id, active]
                properties:
                  id: {type: string}
                  active: {type: boolean}
`), 0644))

	code, _, _ := execute(t, "request", "GET", srv.URL+"/users/3", "--openapi", doc, "--openapi-path", "/users/{id}", "--no-color")
	assert.Equal(t, ExitSuccess, code)

	code, _, _ = execute(t, "request", "GET", srv.URL+"/health", "--openapi", doc, "--openapi-path", "/health", "--no-color")
	assert.Equal(t, ExitTestFailure, code)
}
