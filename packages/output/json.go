package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// JSONOutput is the machine-readable form of a Result
type JSONOutput struct {
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Response *JSONResponse `json:"response,omitempty"`
	Time     string        `json:"time"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
	Body       any               `json:"body,omitempty"`
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	writer io.Writer
	now    func() time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	// error messages must not carry ANSI sequences into JSON
	color.NoColor = true
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(r *Result) error {
	out := JSONOutput{
		Method: r.Method,
		URL:    r.URL,
		Passed: r.Passed(),
		Kind:   r.Kind(),
		Time:   f.now().UTC().Format(time.RFC3339),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}

	if resp := r.Response; resp != nil {
		jr := &JSONResponse{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Duration:   float64(resp.DurationMs()),
		}
		if len(resp.Header) > 0 {
			jr.Headers = make(map[string]string, len(resp.Header))
			for k := range resp.Header {
				jr.Headers[k] = resp.Header.Get(k)
			}
		}
		if r.Body != "" {
			var decoded any
			if resp.IsJSON() && json.Unmarshal([]byte(r.Body), &decoded) == nil {
				jr.Body = decoded
			} else {
				jr.Body = r.Body
			}
		}
		out.Response = jr
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
