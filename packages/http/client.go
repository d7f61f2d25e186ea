package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	neturl "net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
)

// Transport performs a single resolved request. Implementations must return a
// fully buffered Response so that it can be cloned.
type Transport interface {
	Do(ctx context.Context, url string, opts Options) (*Response, error)
}

// Logger is the subset of logrus the client logs through. It matches resty's
// logger contract so the same value can be handed to resty.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

type Client struct {
	follow         *resty.Client
	noFollow       *resty.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	defaultHeaders map[string]string
	logger         Logger
}

type ClientOption func(*Client)

var _ Transport = (*Client)(nil)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.follow = c.newResty(resty.FlexibleRedirectPolicy(c.maxRedirects))
	c.noFollow = c.newResty(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	return c
}

func (c *Client) newResty(policy resty.RedirectPolicy) *resty.Client {
	r := resty.New().
		SetTimeout(c.timeout).
		SetRedirectPolicy(policy).
		SetAllowGetMethodPayload(true)

	if !c.validateSSL {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if c.logger != nil {
		r.SetLogger(c.logger)
	}
	return r
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithLogger routes resty's own diagnostics through l
func WithLogger(l Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Do sends the request described by url and opts and buffers the response.
func (c *Client) Do(ctx context.Context, url string, opts Options) (*Response, error) {
	url = RequestTarget(url)
	if err := ValidateURL(url); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	client := c.follow
	follow := c.followRedirect
	if opts.FollowRedirects != nil {
		follow = *opts.FollowRedirects
	}
	if !follow {
		client = c.noFollow
	}

	req := client.R().SetContext(ctx)

	for k, v := range c.defaultHeaders {
		req.SetHeader(k, v)
	}

	// sorted so that case-varied duplicates resolve the same way every run
	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.SetHeader(k, opts.Headers[k])
	}

	if opts.Body != nil {
		body, contentType, err := opts.Body.encode()
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		req.SetBody(body)

		// Multipart needs the boundary, which only exists once encoded
		current := req.Header.Get("Content-Type")
		if current == "" || (strings.HasPrefix(contentType, ContentTypeMultipart) && current == ContentTypeMultipart) {
			if contentType != "" {
				req.SetHeader("Content-Type", contentType)
			}
		}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}

	return NewResponse(resp.StatusCode(), resp.Status(), resp.Header(), resp.Body(), resp.Time()), nil
}

// RequestTarget percent-encodes the bytes that may not appear on a request
// line: spaces, control bytes, non-ASCII bytes and a '%' that does not start
// an escape. The scheme and host are left untouched, as is everything already
// legal, so encoder output like "a=1,2,3" goes out verbatim.
func RequestTarget(rawURL string) string {
	start := 0
	if i := strings.Index(rawURL, "://"); i >= 0 {
		j := strings.IndexAny(rawURL[i+3:], "/?#")
		if j < 0 {
			return rawURL
		}
		start = i + 3 + j
	}

	var b strings.Builder
	for i := start; i < len(rawURL); i++ {
		if !illegalInTarget(rawURL, i) {
			continue
		}
		if b.Len() == 0 {
			b.Grow(len(rawURL) + 8)
			b.WriteString(rawURL[:i])
		}
		fmt.Fprintf(&b, "%%%02X", rawURL[i])
		for i++; i < len(rawURL) && !illegalInTarget(rawURL, i); i++ {
			b.WriteByte(rawURL[i])
		}
		i--
	}
	if b.Len() == 0 {
		return rawURL
	}
	return b.String()
}

func illegalInTarget(s string, i int) bool {
	c := s[i]
	switch {
	case c <= ' ' || c >= 0x7f:
		return true
	case c == '%':
		return i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])
	}
	return false
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
