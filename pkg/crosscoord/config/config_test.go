package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorsWithDefaults(t *testing.T) {
	c := New(nil)

	assert.Equal(t, "fallback", c.String("missing", "fallback"))
	assert.Equal(t, 7, c.Int("missing", 7))
	assert.True(t, c.Bool("missing", true))
	assert.Equal(t, time.Minute, c.Duration("missing", time.Minute))
	assert.False(t, c.Has("missing"))
}

func TestTypedAccess(t *testing.T) {
	c := New(map[string]any{
		"listen":        ":8087",
		"batch_limit":   float64(100), // JSON numbers decode as float64
		"journal":       true,
		"cache_ttl":     "5m",
		"drain_seconds": 30,
	})

	assert.Equal(t, ":8087", c.String("listen", ""))
	assert.Equal(t, 100, c.Int("batch_limit", 0))
	assert.True(t, c.Bool("journal", false))
	assert.Equal(t, 5*time.Minute, c.Duration("cache_ttl", 0))
	assert.Equal(t, 30*time.Second, c.Duration("drain_seconds", 0))
}

func TestWrongTypesFallBack(t *testing.T) {
	c := New(map[string]any{
		"listen": 8087,
		"limit":  "not-a-number",
		"frac":   1.5,
	})

	assert.Equal(t, "default", c.String("listen", "default"))
	assert.Equal(t, 42, c.Int("limit", 42))
	assert.Equal(t, 42, c.Int("frac", 42), "fractional floats are rejected")
}

func TestFromYAML(t *testing.T) {
	c, err := FromYAML([]byte("listen: \":8087\"\nbatch_limit: 50\nvalidation_cache: true\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8087", c.String("listen", ""))
	assert.Equal(t, 50, c.Int("batch_limit", 0))
	assert.True(t, c.Bool("validation_cache", false))
}

func TestFromJSON(t *testing.T) {
	c, err := FromJSON([]byte(`{"listen": ":9000", "batch_limit": 25}`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.String("listen", ""))
	assert.Equal(t, 25, c.Int("batch_limit", 0))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "coordd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":8087\"\n"), 0o600))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":8087", c.String("listen", ""))

	_, err = FromFile(filepath.Join(dir, "coordd.toml"))
	assert.Error(t, err, "unsupported extension")

	_, err = FromFile(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err, "missing file")
}

func TestFromYAMLInvalid(t *testing.T) {
	_, err := FromYAML([]byte(":\n  - ["))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coordd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server.addr: \":8080\"\nlog.level: info\nevents.retry: true\n",
	), 0o600))

	t.Setenv("COORDD_SERVER_ADDR", ":9090")
	t.Setenv("COORDD_EVENTS_RETRY", "false")
	t.Setenv("COORDD_VALIDATION_CACHE_TTL", "10m")

	c, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file
	assert.Equal(t, ":9090", c.String("server.addr", ""))
	assert.False(t, c.Bool("events.retry", true))
	assert.Equal(t, 10*time.Minute, c.Duration("validation.cache_ttl", 0))

	// File values without an override survive
	assert.Equal(t, "info", c.String("log.level", ""))
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("COORDD_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.String("log.level", ""))
}

func TestLoadUnsetEnvLeavesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coordd.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"validation.cache": true}`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Bool("validation.cache", false))
}
