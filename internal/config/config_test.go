package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/effectflow/internal/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "effectflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "Effect", cfg.Marker)
	assert.Equal(t, []string{"createEffect"}, cfg.Factories)
	assert.Equal(t, []string{"ofType"}, cfg.FilterOperators)
	assert.Equal(t, 64, cfg.MaxDepth)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
marker: Saga
filter_operators: [ofType, ofAction]
exclude: ["*.mock.ts"]
workers: 4
log:
  format: json
`)
	t.Setenv(EnvMarker, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Saga", cfg.Marker)
	assert.Equal(t, []string{"ofType", "ofAction"}, cfg.FilterOperators)
	assert.Equal(t, []string{"*.mock.ts"}, cfg.Exclude)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, []string{"createEffect"}, cfg.Factories)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "marker: Saga\n")
	t.Setenv(EnvMarker, "Effect")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Effect", cfg.Marker)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "markr: Effect\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfig)
	assert.Contains(t, err.Error(), "markr")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestLoadEmptyFile(t *testing.T) {
	t.Setenv(EnvMarker, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{EnvLogFormat: "json"}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "Effect", cfg.Marker)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty marker", func(c *Config) { c.Marker = " " }},
		{"no filters", func(c *Config) { c.FilterOperators = nil }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"bare extension", func(c *Config) { c.Extensions = []string{"ts"} }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), errs.ErrConfig)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "marker: Effect")
	assert.Contains(t, string(data), "filter_operators:")

	cfg := &Config{}
	require.NoError(t, cfg.decode(data))
	assert.Equal(t, Default(), cfg)
}
