package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	mhttp "github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResult() *Result {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Result{
		Method:   "GET",
		URL:      "http://api.test/users",
		Response: mhttp.NewResponse(200, "200 OK", header, []byte(`{"id":1}`), 12*time.Millisecond),
		Body:     `{"id":1}`,
	}
}

func TestResult_Kind(t *testing.T) {
	assert.Equal(t, "", (&Result{}).Kind())
	assert.Equal(t, "assertion", (&Result{Err: &response.AssertionError{Message: "x"}}).Kind())
	assert.Equal(t, "parse", (&Result{Err: &response.ParseError{Err: errors.New("bad")}}).Kind())
	assert.Equal(t, "usage", (&Result{Err: response.Usage("misuse")}).Kind())
	assert.Equal(t, "transport", (&Result{Err: errors.New("dial tcp: refused")}).Kind())
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	require.NoError(t, f.FormatResult(jsonResult()))

	out := buf.String()
	assert.Contains(t, out, "✓ GET http://api.test/users 200 OK (12ms)")
	assert.Contains(t, out, "Content-Type: application/json")
	assert.Contains(t, out, `{"id":1}`)
}

func TestConsoleFormatter_Failure(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	r := jsonResult()
	r.Err = &response.AssertionError{Message: "failed status check", Expected: 201, Received: 200}
	require.NoError(t, f.FormatResult(r))

	out := buf.String()
	assert.Contains(t, out, "✗ GET")
	assert.Contains(t, out, "assertion:")
	assert.Contains(t, out, "Expected 201")
}

func TestConsoleFormatter_TruncatesBody(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithMaxBody(4))

	require.NoError(t, f.FormatResult(jsonResult()))
	assert.Contains(t, buf.String(), `{"id...`)
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	require.NoError(t, f.FormatResult(jsonResult()))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.True(t, out.Passed)
	assert.Equal(t, "GET", out.Method)
	require.NotNil(t, out.Response)
	assert.Equal(t, 200, out.Response.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(1)}, out.Response.Body)
	assert.Equal(t, "application/json", out.Response.Headers["Content-Type"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	f, err := New("json", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("junit", &buf, false, true)
	assert.ErrorContains(t, err, "unknown output format")
}
