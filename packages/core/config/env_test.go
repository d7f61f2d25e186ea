package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env", `# comment
API_KEY=secret123
QUOTED="with spaces"
SINGLE='single'
export EXPORTED=yes
no_equals_here
=missing
`)

	vars, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"API_KEY":  "secret123",
		"QUOTED":   "with spaces",
		"SINGLE":   "single",
		"EXPORTED": "yes",
	}, vars)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/.env")
	assert.ErrorContains(t, err, "cannot open env file")
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"MICROTEST_BASE_URL":         "http://env.test",
		"MICROTEST_TIMEOUT":          "250",
		"MICROTEST_FOLLOW_REDIRECTS": "false",
		"MICROTEST_VERBOSE":          "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://env.test", cfg.BaseURL)
	assert.Equal(t, 250, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetVerbose())
	assert.Nil(t, cfg.NoColor)
}

func TestFromEnvInvalid(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{"MICROTEST_TIMEOUT": "soon"}))
	assert.ErrorContains(t, err, "MICROTEST_TIMEOUT")

	_, err = FromEnv(mapLookup(map[string]string{"MICROTEST_VERBOSE": "maybe"}))
	assert.ErrorContains(t, err, "MICROTEST_VERBOSE")
}

func TestExpand(t *testing.T) {
	lookup := mapLookup(map[string]string{"HOST": "api.test", "TOKEN": "abc"})

	assert.Equal(t, "http://api.test/v1", Expand("http://{{$HOST}}/v1", lookup))
	assert.Equal(t, "Bearer abc", Expand("Bearer {{ $TOKEN }}", lookup))
	assert.Equal(t, "{{$MISSING}}", Expand("{{$MISSING}}", lookup))
}

func TestLoadAppliesEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".microtest.json", `{"baseURL": "http://{{$MICROTEST_UNIT_HOST}}", "headers": {"Authorization": "Bearer {{$MICROTEST_UNIT_TOKEN}}"}}`)
	envFile := writeFile(t, dir, ".env", "MICROTEST_TIMEOUT=1200\nMICROTEST_UNIT_HOST=unit.test\nMICROTEST_UNIT_TOKEN=t0k\n")

	cfg, err := Load("", dir, envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://unit.test", cfg.BaseURL)
	assert.Equal(t, "Bearer t0k", cfg.Headers["Authorization"])
	assert.Equal(t, 1200, cfg.Timeout)
}
