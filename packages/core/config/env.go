package config

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// EnvPrefix prefixes every environment variable that overrides a config field.
const EnvPrefix = "MICROTEST_"

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

var variablePattern = regexp.MustCompile(`\{\{\s*\$([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// LoadDotEnv parses a .env file and returns key-value pairs.
// Supports: KEY=value, KEY="quoted value", KEY='single quoted', # comments
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}

// DotEnvLookup returns a LookupFunc that prefers the OS environment and falls
// back to vars.
func DotEnvLookup(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}

// FromEnv builds a config holding only the fields set through MICROTEST_*
// variables. A nil lookup reads the OS environment.
func FromEnv(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := &Config{}
	if v, ok := lookup(EnvPrefix + "BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := lookup(EnvPrefix + "QUERY_FORMAT"); ok {
		cfg.QueryFormat = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"TIMEOUT", &cfg.Timeout},
		{"MAX_REDIRECTS", &cfg.MaxRedirects},
	}
	for _, f := range ints {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok {
			continue
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
		}
		*f.dst = n
	}

	bools := []struct {
		name string
		dst  **bool
	}{
		{"FOLLOW_REDIRECTS", &cfg.FollowRedirects},
		{"VALIDATE_SSL", &cfg.ValidateSSL},
		{"REQUEST_ID", &cfg.RequestID},
		{"VERBOSE", &cfg.Verbose},
		{"NO_COLOR", &cfg.NoColor},
	}
	for _, f := range bools {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
		}
		*f.dst = BoolPtr(b)
	}

	return cfg, nil
}

// Expand replaces {{$VAR}} references in s. Unknown variables are left as-is.
func Expand(s string, lookup LookupFunc) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return match
	})
}

// Resolve expands variable references in the base URL and header values.
func (c *Config) Resolve(lookup LookupFunc) *Config {
	result := *c
	result.BaseURL = Expand(c.BaseURL, lookup)
	if c.Headers != nil {
		result.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			result.Headers[k] = Expand(v, lookup)
		}
	}
	return &result
}

// Load reads the config file at path (or discovers one in dir when path is
// empty), applies MICROTEST_* overrides and expands variables. envFile, when
// not empty, supplies variables the OS environment does not set.
func Load(path, dir, envFile string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = loadConfigFromFile(path)
	} else {
		cfg, err = FindAndLoadConfig(dir)
	}
	if err != nil {
		return nil, err
	}

	vars := map[string]string{}
	if envFile != "" {
		if vars, err = LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	}
	lookup := DotEnvLookup(vars)

	overrides, err := FromEnv(lookup)
	if err != nil {
		return nil, err
	}
	return cfg.Merge(overrides).Resolve(lookup), nil
}
