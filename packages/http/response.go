package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrBodyUsed is returned when a response body stream is read a second time.
var ErrBodyUsed = errors.New("response body already consumed")

// Response is a buffered HTTP response. Its Body is a single-use stream;
// Clone returns a copy with its own unread stream over the same bytes.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Duration   time.Duration
	Body       io.Reader

	data []byte
	mu   sync.Mutex
	used bool
}

// NewResponse wraps an already buffered body
func NewResponse(statusCode int, status string, header http.Header, body []byte, duration time.Duration) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: statusCode,
		Status:     status,
		Header:     header,
		Duration:   duration,
		Body:       bytes.NewReader(body),
		data:       body,
	}
}

// Clone returns an independent copy with an unread body
func (r *Response) Clone() *Response {
	return NewResponse(r.StatusCode, r.Status, r.Header.Clone(), r.data, r.Duration)
}

// Bytes drains the body stream
func (r *Response) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return nil, ErrBodyUsed
	}
	r.used = true
	return io.ReadAll(r.Body)
}

// Text drains the body stream as a string
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSON drains the body stream and decodes it into v
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// BodyUsed reports whether the body stream has been consumed
func (r *Response) BodyUsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// HeaderValue looks a header up case-insensitively
func (r *Response) HeaderValue(key string) string {
	return r.Header.Get(key)
}

func (r *Response) ContentType() string {
	return r.HeaderValue("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
