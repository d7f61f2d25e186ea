package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/spf13/cast"
)

const (
	// ContentTypeJSON is set by builders that encode JSON payloads
	ContentTypeJSON = "application/json"
	// ContentTypeMultipart is set by builders that encode form data. The
	// boundary is appended by the transport when the body is encoded.
	ContentTypeMultipart = "multipart/form-data"
)

// Body is a request payload. A nil Body means the request has no body.
type Body interface {
	// encode returns the payload bytes and the content type they imply,
	// or an empty content type when the payload implies none.
	encode() ([]byte, string, error)
}

// RawBody is an opaque byte payload sent as-is.
type RawBody []byte

func (b RawBody) encode() ([]byte, string, error) {
	return []byte(b), "", nil
}

// TextBody is a string payload sent as-is.
type TextBody string

func (b TextBody) encode() ([]byte, string, error) {
	return []byte(b), "", nil
}

// JSONBody is a pre-encoded JSON document.
type JSONBody string

func (b JSONBody) encode() ([]byte, string, error) {
	return []byte(b), ContentTypeJSON, nil
}

// String returns the encoded document
func (b JSONBody) String() string {
	return string(b)
}

// FormFile is a file part of a multipart form
type FormFile struct {
	Filename string
	Content  []byte
}

// FormField is a single multipart form entry. Value is either a FormFile or
// anything spf13/cast can turn into a string.
type FormField struct {
	Name  string
	Value any
}

// FormBody is a multipart form whose fields are written in order.
type FormBody struct {
	Fields []FormField
}

// Append adds a field and returns the body for chaining
func (b *FormBody) Append(name string, value any) *FormBody {
	b.Fields = append(b.Fields, FormField{Name: name, Value: value})
	return b
}

// Get returns the first value stored under name
func (b *FormBody) Get(name string) (any, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (b *FormBody) encode() ([]byte, string, error) {
	buf, contentType, err := BuildMultipartBody(b.Fields)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}

// BuildMultipartBody creates a multipart form data body from form fields
func BuildMultipartBody(fields []FormField) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		switch v := field.Value.(type) {
		case FormFile:
			part, err := writer.CreateFormFile(field.Name, v.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(v.Content); err != nil {
				return nil, "", err
			}
		case *FormFile:
			part, err := writer.CreateFormFile(field.Name, v.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(v.Content); err != nil {
				return nil, "", err
			}
		default:
			value, err := cast.ToStringE(field.Value)
			if err != nil {
				return nil, "", fmt.Errorf("form field %q: %w", field.Name, err)
			}
			if err := writer.WriteField(field.Name, value); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

// Options is everything the transport needs besides the URL.
type Options struct {
	Method  string
	Headers map[string]string
	Body    Body
	// Timeout bounds the whole exchange; zero leaves the client default.
	Timeout time.Duration
	// FollowRedirects overrides the client redirect policy when set.
	FollowRedirects *bool
}

// Option mutates transport options. Builders accept these as caller overrides.
type Option func(*Options)

// WithRequestTimeout bounds a single request
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithRedirects overrides whether a single request follows redirects
func WithRedirects(follow bool) Option {
	return func(o *Options) {
		o.FollowRedirects = &follow
	}
}

// Clone returns a copy that shares no header map with o
func (o Options) Clone() Options {
	out := o
	if o.Headers != nil {
		out.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			out.Headers[k] = v
		}
	}
	if o.FollowRedirects != nil {
		follow := *o.FollowRedirects
		out.FollowRedirects = &follow
	}
	return out
}
