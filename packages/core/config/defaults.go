package config

// DefaultConfig returns a configuration with default values. Flags that
// default to false stay unset so they never override runner options.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		QueryFormat:     "comma",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.BaseURL == defaults.BaseURL &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		len(c.Headers) == 0 &&
		c.QueryFormat == defaults.QueryFormat &&
		c.GetRequestID() == defaults.GetRequestID() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
