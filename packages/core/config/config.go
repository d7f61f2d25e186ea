package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by runners and the CLI. Pointer fields
// distinguish "unset" from an explicit false so that Merge can layer files,
// environment and flags.
type Config struct {
	BaseURL         string            `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryFormat     string            `json:"queryFormat,omitempty" yaml:"queryFormat,omitempty"`
	RequestID       *bool             `json:"requestID,omitempty" yaml:"requestID,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

func boolOr(b *bool, fallback bool) bool {
	if b != nil {
		return *b
	}
	return fallback
}

// GetFollowRedirects reports whether redirects are followed. Unset means true.
func (c *Config) GetFollowRedirects() bool { return boolOr(c.FollowRedirects, true) }

// GetValidateSSL reports whether TLS certificates are verified. Unset means true.
func (c *Config) GetValidateSSL() bool { return boolOr(c.ValidateSSL, true) }

// GetRequestID reports whether requests are stamped with X-Request-Id.
func (c *Config) GetRequestID() bool { return boolOr(c.RequestID, false) }

func (c *Config) GetVerbose() bool { return boolOr(c.Verbose, false) }

func (c *Config) GetNoColor() bool { return boolOr(c.NoColor, false) }

// ConfigFilenames lists the names FindAndLoadConfig looks for, first match wins.
var ConfigFilenames = []string{
	".microtest.json",
	"microtest.json",
	".microtest.yaml",
	".microtest.yml",
	"microtest.yaml",
}

// LoadConfig reads path, or looks for a config file in the working
// directory when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return FindAndLoadConfig(".")
	}
	return loadConfigFromFile(path)
}

// FindAndLoadConfig loads the first of ConfigFilenames present in dir.
// A directory without one yields DefaultConfig.
func FindAndLoadConfig(dir string) (*Config, error) {
	if path, ok := locate(dir); ok {
		return loadConfigFromFile(path)
	}
	return DefaultConfig(), nil
}

func locate(dir string) (string, bool) {
	for _, name := range ConfigFilenames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func loadConfigFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(raw, cfg)
	} else {
		err = json.Unmarshal(raw, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func pickBool(base, override *bool) *bool {
	if override != nil {
		return override
	}
	return base
}

// Merge returns a copy of c with every field set in other layered on top.
// Zero values and nil pointers in other leave c's value in place. Headers
// are combined key by key and c is never modified.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	out := *c
	if other.BaseURL != "" {
		out.BaseURL = other.BaseURL
	}
	if other.QueryFormat != "" {
		out.QueryFormat = other.QueryFormat
	}
	if other.Timeout > 0 {
		out.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		out.MaxRedirects = other.MaxRedirects
	}

	out.FollowRedirects = pickBool(c.FollowRedirects, other.FollowRedirects)
	out.ValidateSSL = pickBool(c.ValidateSSL, other.ValidateSSL)
	out.RequestID = pickBool(c.RequestID, other.RequestID)
	out.Verbose = pickBool(c.Verbose, other.Verbose)
	out.NoColor = pickBool(c.NoColor, other.NoColor)

	if len(c.Headers)+len(other.Headers) > 0 {
		out.Headers = make(map[string]string, len(c.Headers)+len(other.Headers))
		for _, src := range []map[string]string{c.Headers, other.Headers} {
			for k, v := range src {
				out.Headers[k] = v
			}
		}
	}
	return &out
}

// SaveConfig writes c to path, as YAML for .yaml/.yml and indented JSON
// otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		out []byte
		err error
	)
	if isYAML(path) {
		out, err = yaml.Marshal(c)
	} else {
		out, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
