// Package builder accumulates request intent through chained calls and
// resolves it into a dispatchable request in one step.
package builder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/query"
)

// Method is an HTTP verb supported by the builder
type Method string

const (
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodGet     Method = "GET"
	MethodPatch   Method = "PATCH"
	MethodPut     Method = "PUT"
	MethodPost    Method = "POST"
	MethodDelete  Method = "DELETE"
)

// Methods lists every verb in declaration order
var Methods = []Method{MethodHead, MethodOptions, MethodGet, MethodPatch, MethodPut, MethodPost, MethodDelete}

// Resolved is an immutable request ready for dispatch.
type Resolved struct {
	URL     string
	Options http.Options
}

// Builder is owned by a single request. Every setter mutates the builder and
// returns it; normalization is deferred to Resolve.
type Builder struct {
	baseURL   string
	path      string
	params    query.Params
	parser    query.Parser
	method    Method
	headers   map[string]string
	body      http.Body
	overrides []http.Option
	bodyErr   error
}

// New creates a builder for requests against baseURL. A nil parser selects
// query.DefaultParser.
func New(baseURL string, parser query.Parser) *Builder {
	if parser == nil {
		parser = query.DefaultParser
	}
	return &Builder{
		baseURL: baseURL,
		parser:  parser,
	}
}

func (b *Builder) Head(path ...string) *Builder    { return b.Verb(MethodHead, path...) }
func (b *Builder) Options(path ...string) *Builder { return b.Verb(MethodOptions, path...) }
func (b *Builder) Get(path ...string) *Builder     { return b.Verb(MethodGet, path...) }
func (b *Builder) Patch(path ...string) *Builder   { return b.Verb(MethodPatch, path...) }
func (b *Builder) Put(path ...string) *Builder     { return b.Verb(MethodPut, path...) }
func (b *Builder) Post(path ...string) *Builder    { return b.Verb(MethodPost, path...) }
func (b *Builder) Delete(path ...string) *Builder  { return b.Verb(MethodDelete, path...) }

// Verb records method and path together, replacing any previous pair. Only
// the first path element is used; an omitted path is the empty path.
func (b *Builder) Verb(method Method, path ...string) *Builder {
	b.method = method
	b.path = ""
	if len(path) > 0 {
		b.path = path[0]
	}
	return b
}

// Body replaces the request payload, along with any encoding error left by
// an earlier JSON call.
func (b *Builder) Body(body http.Body) *Builder {
	b.body = body
	b.bodyErr = nil
	return b
}

// Text sets a plain string payload
func (b *Builder) Text(s string) *Builder {
	return b.Body(http.TextBody(s))
}

// Bytes sets a raw byte payload
func (b *Builder) Bytes(data []byte) *Builder {
	return b.Body(http.RawBody(data))
}

// FormData builds a multipart body from fields in key order and sets the
// multipart Content-Type, overwriting any previous value.
func (b *Builder) FormData(fields map[string]any) *Builder {
	return b.FormFields(query.FromMap(fields)...)
}

// FormFields is FormData with caller-controlled field order.
func (b *Builder) FormFields(fields ...query.Param) *Builder {
	form := &http.FormBody{}
	for _, f := range fields {
		form.Append(f.Key, f.Value)
	}
	return b.Body(form).Header("Content-Type", http.ContentTypeMultipart)
}

// JSON encodes v as the request payload and sets the JSON Content-Type.
// An encoding failure is reported by Resolve until another body replaces it.
func (b *Builder) JSON(v any) *Builder {
	data, err := json.Marshal(v)
	if err != nil {
		b.body = nil
		b.bodyErr = fmt.Errorf("encoding json body: %w", err)
		return b
	}
	return b.Body(http.JSONBody(data)).Header("Content-Type", http.ContentTypeJSON)
}

// Query stores params for encoding at resolve time. Keys are encoded in
// sorted order.
func (b *Builder) Query(params map[string]any) *Builder {
	return b.QueryParams(query.FromMap(params))
}

// QueryParams stores ordered params for encoding at resolve time. Empty
// params resolve to a URL without "?".
func (b *Builder) QueryParams(params query.Params) *Builder {
	b.params = params
	return b
}

// Header merges a single header. Keys keep their exact casing.
func (b *Builder) Header(key, value string) *Builder {
	if b.headers == nil {
		b.headers = make(map[string]string)
	}
	b.headers[key] = value
	return b
}

// Headers merges every entry of headers
func (b *Builder) Headers(headers map[string]string) *Builder {
	for k, v := range headers {
		b.Header(k, v)
	}
	return b
}

// TransportOptions appends caller overrides applied on top of the resolved
// method, headers and body.
func (b *Builder) TransportOptions(opts ...http.Option) *Builder {
	b.overrides = append(b.overrides, opts...)
	return b
}

// Resolve projects the builder into a Resolved request. It has no side
// effects and may be called any number of times.
func (b *Builder) Resolve() (*Resolved, error) {
	if b.bodyErr != nil {
		return nil, b.bodyErr
	}

	path := b.path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	opts := http.Options{
		Method:  string(b.method),
		Headers: b.headers,
		Body:    b.body,
	}
	opts = opts.Clone()
	for _, o := range b.overrides {
		o(&opts)
	}

	return &Resolved{
		URL:     b.baseURL + path + b.encodeQuery(),
		Options: opts,
	}, nil
}

func (b *Builder) encodeQuery() string {
	if len(b.params) == 0 {
		return ""
	}
	return "?" + b.parser(b.params)
}
