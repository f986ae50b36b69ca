// Package config loads analyzer settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/effectflow/internal/errs"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = ".effectflow.yaml"

// Environment variable overrides.
const (
	EnvLogLevel  = "EFFECTFLOW_LOG_LEVEL"
	EnvLogFormat = "EFFECTFLOW_LOG_FORMAT"
	EnvMarker    = "EFFECTFLOW_MARKER"
)

// Config holds every analyzer setting.
type Config struct {
	Marker          string    `yaml:"marker"`
	Factories       []string  `yaml:"factories"`
	FilterOperators []string  `yaml:"filter_operators"`
	Extensions      []string  `yaml:"extensions"`
	Exclude         []string  `yaml:"exclude"`
	IncludeTests    bool      `yaml:"include_tests"`
	MaxDepth        int       `yaml:"max_depth"`
	Workers         int       `yaml:"workers"`
	Log             LogConfig `yaml:"log"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Marker:          "Effect",
		Factories:       []string{"createEffect"},
		FilterOperators: []string{"ofType"},
		Extensions:      []string{".ts", ".tsx"},
		Exclude:         []string{"*.spec.ts", "*.d.ts"},
		MaxDepth:        64,
		Log:             LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path reads DefaultFile when it exists and the defaults otherwise.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, errs.ErrConfig, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w: %w", errs.ErrConfig, err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg, rejecting unknown keys.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := getenv(EnvMarker); v != "" {
		c.Marker = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("%w: marker must not be empty", errs.ErrConfig)
	}
	if len(c.FilterOperators) == 0 {
		return fmt.Errorf("%w: filter_operators must list at least one operator", errs.ErrConfig)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be positive, got %d", errs.ErrConfig, c.MaxDepth)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", errs.ErrConfig, c.Workers)
	}
	for _, e := range c.Extensions {
		if !strings.HasPrefix(e, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", errs.ErrConfig, e)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", errs.ErrConfig, c.Log.Format)
	}
	return nil
}

// Marshal renders cfg as the YAML written by `effectflow init`.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# effectflow configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
