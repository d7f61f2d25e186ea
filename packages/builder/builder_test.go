package builder

import (
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const host = "http://localhost:3000"

func resolve(t *testing.T, b *Builder) *Resolved {
	t.Helper()
	r, err := b.Resolve()
	require.NoError(t, err)
	return r
}

func TestBuilder_BuildsRequest(t *testing.T) {
	r := resolve(t, New(host, nil).Get("/foo"))

	assert.Equal(t, host+"/foo", r.URL)
	assert.Equal(t, "GET", r.Options.Method)
	assert.Nil(t, r.Options.Headers)
	assert.Nil(t, r.Options.Body)
}

func TestBuilder_Headers(t *testing.T) {
	r := resolve(t, New(host, nil).Get().Header("x-custom-header", "foo"))

	assert.Equal(t, map[string]string{"x-custom-header": "foo"}, r.Options.Headers)
}

func TestBuilder_HeadersMergeLastWriteWins(t *testing.T) {
	h1 := map[string]string{"A": "1", "B": "1"}
	h2 := map[string]string{"B": "2", "C": "2"}

	r := resolve(t, New(host, nil).Get().Headers(h1).Headers(h2))

	assert.Equal(t, map[string]string{"A": "1", "B": "2", "C": "2"}, r.Options.Headers)
}

func TestBuilder_HeadersKeepCasing(t *testing.T) {
	r := resolve(t, New(host, nil).Header("x-token", "a").Header("X-Token", "b"))

	assert.Len(t, r.Options.Headers, 2)
	assert.Equal(t, "a", r.Options.Headers["x-token"])
	assert.Equal(t, "b", r.Options.Headers["X-Token"])
}

func TestBuilder_PostBody(t *testing.T) {
	r := resolve(t, New(host, nil).Post("/foo").Text("bar"))

	assert.Equal(t, "POST", r.Options.Method)
	assert.Equal(t, http.TextBody("bar"), r.Options.Body)
}

func TestBuilder_FormData(t *testing.T) {
	b := New(host, nil).
		Post("/foo").
		Header("Content-Type", "text/plain").
		Text("previous").
		FormData(map[string]any{"foo": "bar"})

	r := resolve(t, b)

	form, ok := r.Options.Body.(*http.FormBody)
	require.True(t, ok, "body should be a form, got %T", r.Options.Body)
	v, ok := form.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
	assert.Equal(t, map[string]string{"Content-Type": "multipart/form-data"}, r.Options.Headers)
}

func TestBuilder_FormFieldsKeepOrder(t *testing.T) {
	r := resolve(t, New(host, nil).Post().FormFields(
		query.Param{Key: "z", Value: 1},
		query.Param{Key: "a", Value: 2},
	))

	form := r.Options.Body.(*http.FormBody)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, "z", form.Fields[0].Name)
	assert.Equal(t, "a", form.Fields[1].Name)
}

func TestBuilder_JSON(t *testing.T) {
	r := resolve(t, New(host, nil).Post("/foo").JSON(map[string]string{"foo": "bar"}))

	assert.Equal(t, http.JSONBody(`{"foo":"bar"}`), r.Options.Body)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, r.Options.Headers)
}

func TestBuilder_JSONEncodingError(t *testing.T) {
	_, err := New(host, nil).Post().JSON(make(chan int)).Resolve()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding json body")
}

func TestBuilder_ReplacedBodyClearsEncodingError(t *testing.T) {
	r := resolve(t, New(host, nil).Post("/x").JSON(make(chan int)).JSON(map[string]string{"foo": "bar"}))
	assert.Equal(t, http.JSONBody(`{"foo":"bar"}`), r.Options.Body)

	r = resolve(t, New(host, nil).Post("/x").JSON(make(chan int)).Text("plain"))
	assert.Equal(t, http.TextBody("plain"), r.Options.Body)
}

func TestBuilder_Methods(t *testing.T) {
	verbs := map[Method]func(*Builder, ...string) *Builder{
		MethodHead:    (*Builder).Head,
		MethodOptions: (*Builder).Options,
		MethodGet:     (*Builder).Get,
		MethodPatch:   (*Builder).Patch,
		MethodPut:     (*Builder).Put,
		MethodPost:    (*Builder).Post,
		MethodDelete:  (*Builder).Delete,
	}
	require.Len(t, verbs, len(Methods))

	for _, m := range Methods {
		t.Run(strings.ToLower(string(m)), func(t *testing.T) {
			r := resolve(t, verbs[m](New(host, nil)))
			assert.Equal(t, string(m), r.Options.Method)
		})
	}
}

func TestBuilder_VerbOverwritesPath(t *testing.T) {
	r := resolve(t, New(host, nil).Get("/first").Post("second"))

	assert.Equal(t, "POST", r.Options.Method)
	assert.Equal(t, host+"/second", r.URL)
}

func TestBuilder_PathNormalization(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"foo", host + "/foo"},
		{"/foo", host + "/foo"},
		{"", host + "/"},
		{"foo/bar", host + "/foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := resolve(t, New(host, nil).Get(tt.path))
			assert.Equal(t, tt.expected, r.URL)
		})
	}
}

func TestBuilder_ResolveIsRepeatable(t *testing.T) {
	b := New(host, nil).Get("foo").Query(map[string]any{"a": 1}).Header("k", "v")

	first := resolve(t, b)
	second := resolve(t, b)

	assert.Equal(t, first, second)
	assert.Equal(t, host+"/foo?a=1", second.URL)

	first.Options.Headers["k"] = "mutated"
	assert.Equal(t, "v", resolve(t, b).Options.Headers["k"])
}

func TestBuilder_Query(t *testing.T) {
	r := resolve(t, New(host, nil).Get("/foo").Query(map[string]any{"a": []int{1, 2, 3}}))

	assert.Equal(t, host+"/foo?a=1,2,3", r.URL)
}

func TestBuilder_NoQuery(t *testing.T) {
	assert.Equal(t, host+"/foo", resolve(t, New(host, nil).Get("/foo")).URL)
	assert.Equal(t, host+"/foo", resolve(t, New(host, nil).Get("/foo").Query(map[string]any{})).URL)
}

func TestBuilder_CustomQueryParser(t *testing.T) {
	var received query.Params
	parser := func(p query.Params) string {
		received = p
		return "gottem"
	}

	r := resolve(t, New(host, parser).Get("/foo").Query(map[string]any{"a": []int{1, 2, 3}}))

	assert.Equal(t, host+"/foo?gottem", r.URL)
	assert.Equal(t, query.Params{{Key: "a", Value: []int{1, 2, 3}}}, received)
}

func TestBuilder_TransportOptions(t *testing.T) {
	r := resolve(t, New(host, nil).Get().TransportOptions(
		http.WithRequestTimeout(time.Second),
		http.WithRedirects(false),
	))

	assert.Equal(t, time.Second, r.Options.Timeout)
	require.NotNil(t, r.Options.FollowRedirects)
	assert.False(t, *r.Options.FollowRedirects)
	assert.Equal(t, "GET", r.Options.Method)
}
