package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/assertions"
	"github.com/abdul-hamid-achik/microtest/packages/builder"
	"github.com/abdul-hamid-achik/microtest/packages/core/config"
	"github.com/abdul-hamid-achik/microtest/packages/core/log"
	"github.com/abdul-hamid-achik/microtest/packages/core/runner"
	"github.com/abdul-hamid-achik/microtest/packages/http"
	"github.com/abdul-hamid-achik/microtest/packages/output"
	"github.com/abdul-hamid-achik/microtest/packages/query"
	"github.com/abdul-hamid-achik/microtest/packages/stress"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	headers      []string
	queries      []string
	forms        []string
	data         string
	jsonBody     string
	expectStatus int
	expectHeader []string
	expectJSON   []string
	expectBody   []string
	schema       string
	openapi      string
	openapiPath  string
	timeout      string
	noFollow     bool
	insecure     bool
	requestID    bool
	configPath   string
	envFile      string
	queryFormat  string
	outputFormat string
	verbose      bool
	noColor      bool
	repeat       int
	rate         float64
	concurrency  int
}

var reqFlags requestFlags

var requestCmd = &cobra.Command{
	Use:   "request <method> <url|path>",
	Short: "Send one request and check the response",
	Long: `Send one request through the microtest pipeline.

A path without a scheme is resolved against baseURL from the config file.
Query values for a repeated key are joined with commas by default.

Examples:
  microtest request GET http://localhost:8080/health --expect-status 200
  microtest request GET /users -q id=1 -q id=2 --expect-json "0.id=1"
  microtest request POST /users --json '{"name":"ada"}' --expect-status 201
  microtest request POST /upload -F name=report -F file=@report.pdf
  microtest request GET /health --repeat 100 --rate 20 --concurrency 4
  microtest request GET /users/7 --openapi api.yaml --openapi-path "/users/{id}"`,
	Args: cobra.ExactArgs(2),
	RunE: requestCommand,
}

func init() {
	f := requestCmd.Flags()
	f.StringArrayVarP(&reqFlags.headers, "header", "H", nil, `Request header "Key: Value" (repeatable)`)
	f.StringArrayVarP(&reqFlags.queries, "query", "q", nil, "Query parameter key=value (repeatable)")
	f.StringArrayVarP(&reqFlags.forms, "form", "F", nil, "Multipart field key=value, or key=@path for a file (repeatable)")
	f.StringVarP(&reqFlags.data, "data", "d", "", "Raw text body")
	f.StringVar(&reqFlags.jsonBody, "json", "", "JSON body, sent as application/json")
	f.IntVar(&reqFlags.expectStatus, "expect-status", 0, "Expected status code")
	f.StringArrayVar(&reqFlags.expectHeader, "expect-header", nil, `Expected header "Key: Value" (repeatable)`)
	f.StringArrayVar(&reqFlags.expectJSON, "expect-json", nil, "Expected JSON value path=value, gjson syntax (repeatable)")
	f.StringArrayVar(&reqFlags.expectBody, "expect-body", nil, "Substring the body must contain (repeatable)")
	f.StringVar(&reqFlags.schema, "schema", "", "JSON schema file the body must satisfy")
	f.StringVar(&reqFlags.openapi, "openapi", "", "OpenAPI 3 document the response must conform to")
	f.StringVar(&reqFlags.openapiPath, "openapi-path", "", "Path template in the OpenAPI document (default: the request path)")
	f.StringVar(&reqFlags.timeout, "timeout", getEnvString("MICROTEST_CLI_TIMEOUT", ""), "Request timeout (e.g., 5s); overrides the config file")
	f.BoolVar(&reqFlags.noFollow, "no-follow", false, "Do not follow redirects")
	f.BoolVarP(&reqFlags.insecure, "insecure", "k", false, "Disable SSL certificate validation")
	f.BoolVar(&reqFlags.requestID, "request-id", false, "Stamp the request with a random X-Request-Id")
	f.StringVar(&reqFlags.configPath, "config", getEnvString("MICROTEST_CONFIG", ""), "Path to config file (env: MICROTEST_CONFIG)")
	f.StringVar(&reqFlags.envFile, "env-file", getEnvString("MICROTEST_ENV_FILE", ""), "Path to .env file (env: MICROTEST_ENV_FILE)")
	f.StringVar(&reqFlags.queryFormat, "query-format", "", "Query encoding: comma or urlencoded")
	f.StringVarP(&reqFlags.outputFormat, "output", "o", "console", "Output format: console, json")
	f.BoolVarP(&reqFlags.verbose, "verbose", "v", getEnvBool("MICROTEST_VERBOSE", false), "Print response headers and debug logs")
	f.IntVar(&reqFlags.repeat, "repeat", 1, "Send the request this many times and print a latency summary")
	f.Float64Var(&reqFlags.rate, "rate", 0, "With --repeat, maximum requests per second (0 = unlimited)")
	f.IntVar(&reqFlags.concurrency, "concurrency", 1, "With --repeat, requests in flight at once")
	f.BoolVar(&reqFlags.noColor, "no-color", getEnvBool("MICROTEST_NO_COLOR", false), "Disable colored output")
}

func requestCommand(cmd *cobra.Command, args []string) error {
	flags := reqFlags

	method := builder.Method(strings.ToUpper(args[0]))
	if !validMethod(method) {
		return withExitCode(ExitUsageError, fmt.Errorf("unsupported method %q", args[0]))
	}

	cfg, err := loadRequestConfig(flags)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	baseURL, path, params, err := splitTarget(args[1], cfg.BaseURL)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	headers, err := parseHeaders(flags.headers)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	params, err = appendQueryFlags(params, flags.queries)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	form, err := parseFormFlags(flags.forms)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	checks, err := buildAssertions(flags)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if flags.openapi != "" {
		doc, err := assertions.LoadOpenAPI(ctx, flags.openapi)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		template := flags.openapiPath
		if template == "" {
			template = path
		}
		checks = append(checks, assertions.OpenAPIResponse(doc, string(method), template))
	}

	formatter, err := output.New(flags.outputFormat, cmd.OutOrStdout(), flags.verbose || cfg.GetVerbose(), flags.noColor || cfg.GetNoColor())
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	logger := log.New(log.Properties{Verbose: flags.verbose || cfg.GetVerbose(), Output: cmd.ErrOrStderr()})
	request := runner.New(baseURL, runner.WithConfig(cfg), runner.WithLogger(logger))

	// send dispatches one request. The returned response is a clone taken by
	// the first assertion, so it is available even when a later one fails.
	send := func(ctx context.Context) (*http.Response, error) {
		var seen *http.Response
		p := request(func(b *builder.Builder) *builder.Builder {
			b.Verb(method, path).Headers(headers)
			if len(params) > 0 {
				b.QueryParams(params)
			}
			switch {
			case flags.jsonBody != "":
				b.Body(http.JSONBody(flags.jsonBody)).Header("Content-Type", http.ContentTypeJSON)
			case len(form) > 0:
				b.FormFields(form...)
			case flags.data != "":
				b.Text(flags.data)
			}
			return b
		})
		p.Assert(func(r *http.Response) error {
			seen = r
			return nil
		})
		if flags.expectStatus != 0 {
			p.Status(flags.expectStatus)
		}
		p.Assert(checks...)

		_, err := p.Raw(ctx)
		return seen, err
	}

	if flags.repeat > 1 {
		return repeatRequest(ctx, cmd, flags, send)
	}

	result := &output.Result{Method: string(method), URL: displayURL(baseURL, path, params, cfg.QueryFormat, flags.queryFormat)}
	resp, err := send(ctx)
	result.Err = err
	if resp != nil {
		result.Response = resp
		if text, textErr := resp.Text(); textErr == nil {
			result.Body = text
		}
	}

	if err := formatter.FormatResult(result); err != nil {
		return err
	}
	return exitFor(result)
}

func repeatRequest(ctx context.Context, cmd *cobra.Command, flags requestFlags, send func(context.Context) (*http.Response, error)) error {
	cfg := stress.Config{Count: flags.repeat, Rate: flags.rate, Concurrency: flags.concurrency}
	summary, err := stress.Run(ctx, cfg, func(ctx context.Context) (time.Duration, error) {
		resp, err := send(ctx)
		if resp == nil {
			return 0, err
		}
		return resp.Duration, err
	})
	if summary == nil {
		return withExitCode(ExitUsageError, err)
	}

	stress.Report(cmd.OutOrStdout(), summary)
	if err != nil {
		return withExitCode(ExitNetworkError, err)
	}
	if summary.FirstError != nil {
		return exitFor(&output.Result{Err: summary.FirstError})
	}
	return nil
}

func exitFor(result *output.Result) error {
	switch result.Kind() {
	case "":
		return nil
	case "assertion":
		return withExitCode(ExitTestFailure, result.Err)
	case "parse":
		return withExitCode(ExitParseError, result.Err)
	case "usage":
		return withExitCode(ExitUsageError, result.Err)
	default:
		return withExitCode(ExitNetworkError, result.Err)
	}
}

func validMethod(m builder.Method) bool {
	for _, known := range builder.Methods {
		if m == known {
			return true
		}
	}
	return false
}

func loadRequestConfig(flags requestFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, ".", flags.envFile)
	if err != nil {
		return nil, err
	}

	overrides := &config.Config{QueryFormat: flags.queryFormat}
	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", flags.timeout, err)
		}
		overrides.Timeout = int(d.Milliseconds())
	}
	if flags.noFollow {
		overrides.FollowRedirects = config.BoolPtr(false)
	}
	if flags.insecure {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if flags.requestID {
		overrides.RequestID = config.BoolPtr(true)
	}
	return cfg.Merge(overrides), nil
}

// splitTarget separates an absolute URL into base, path and query. A bare
// path is resolved against base.
func splitTarget(target, base string) (string, string, query.Params, error) {
	if !strings.Contains(target, "://") {
		if base == "" {
			return "", "", nil, fmt.Errorf("%q is not an absolute URL and no baseURL is configured", target)
		}
		target = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid URL %q: %w", target, err)
	}

	var params query.Params
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return "", "", nil, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return "", "", nil, fmt.Errorf("invalid query value %q: %w", v, err)
		}
		params = addQueryValue(params, key, value)
	}

	return u.Scheme + "://" + u.Host, u.EscapedPath(), params, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Key: Value\")", h)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}

func appendQueryFlags(params query.Params, raw []string) (query.Params, error) {
	for _, q := range raw {
		key, value, ok := strings.Cut(q, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q (expected key=value)", q)
		}
		params = addQueryValue(params, key, value)
	}
	return params, nil
}

// addQueryValue appends key=value, turning a repeated key into a slice so the
// parser can render it as an array.
func addQueryValue(params query.Params, key, value string) query.Params {
	for i, p := range params {
		if p.Key != key {
			continue
		}
		switch existing := p.Value.(type) {
		case []string:
			params[i].Value = append(existing, value)
		default:
			params[i].Value = []string{cast.ToString(existing), value}
		}
		return params
	}
	return params.Add(key, value)
}

func parseFormFlags(raw []string) ([]query.Param, error) {
	fields := make([]query.Param, 0, len(raw))
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form field %q (expected key=value)", f)
		}
		if strings.HasPrefix(value, "@") {
			path := value[1:]
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading form file: %w", err)
			}
			fields = append(fields, query.Param{Key: key, Value: http.FormFile{Filename: baseName(path), Content: content}})
			continue
		}
		fields = append(fields, query.Param{Key: key, Value: value})
	}
	return fields, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func buildAssertions(flags requestFlags) ([]assertions.Assertion, error) {
	var checks []assertions.Assertion

	for _, h := range flags.expectHeader {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --expect-header %q (expected \"Key: Value\")", h)
		}
		checks = append(checks, assertions.Header(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	for _, j := range flags.expectJSON {
		path, raw, ok := strings.Cut(j, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid --expect-json %q (expected path=value)", j)
		}
		checks = append(checks, assertions.JSONPath(path, parseExpected(raw)))
	}
	for _, substr := range flags.expectBody {
		checks = append(checks, assertions.BodyContains(substr))
	}
	if flags.schema != "" {
		checks = append(checks, assertions.JSONSchemaFile(flags.schema))
	}
	return checks, nil
}

// parseExpected reads a literal from the command line: numbers, booleans and
// null keep their JSON type, everything else is a string.
func parseExpected(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return strings.Trim(raw, `"`)
}

func displayURL(baseURL, path string, params query.Params, formats ...string) string {
	if len(params) == 0 {
		return baseURL + path
	}
	parser := query.DefaultParser
	for _, name := range formats {
		if p, err := query.Named(name); err == nil && name != "" {
			parser = p
		}
	}
	return baseURL + path + "?" + parser(params)
}
