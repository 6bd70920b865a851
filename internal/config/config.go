// Package config loads the reel configuration from a YAML or JSON file and
// command-line overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/adapters/chrome"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the complete reel configuration.
type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	Browser    chrome.Config   `mapstructure:"browser"`
	Render     RenderConfig    `mapstructure:"render"`
	SourceMaps SourceMapConfig `mapstructure:"source_maps"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Server     ServerConfig    `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	ServeURL    string        `mapstructure:"serve_url"`
	Parallelism int           `mapstructure:"parallelism"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Output      string        `mapstructure:"output"`
	// Encoder is "frames" for an image sequence, or the name of a process encoder.
	Encoder      string `mapstructure:"encoder"`
	EncodersFile string `mapstructure:"encoders_file"`
}

// SourceMapConfig configures symbolication. Maps are fetched over HTTP next to the
// bundle unless Dir is set.
type SourceMapConfig struct {
	Disabled     bool          `mapstructure:"disabled"`
	Dir          string        `mapstructure:"dir"`
	CacheSize    int           `mapstructure:"cache_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// RedisConfig enables persisted records and output locks when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	// Redact lists regular expressions masked in persisted records.
	Redact []string `mapstructure:"redact"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
	// MCP mounts the Model Context Protocol endpoint on /mcp.
	MCP bool `mapstructure:"mcp"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Browser: chrome.Config{Headless: true, Format: "png", ReadyTimeout: chrome.DefaultReadyTimeout},
		Render: RenderConfig{
			Parallelism:  1,
			Output:       "out",
			Encoder:      "frames",
			EncodersFile: "encoders.yaml",
		},
		SourceMaps: SourceMapConfig{CacheSize: 64, FetchTimeout: 10 * time.Second},
		Redis:      RedisConfig{Prefix: "reel:", LockTTL: 10 * time.Minute},
		Server:     ServerConfig{Addr: ":8080", Metrics: true},
	}
}

// Load reads path (skipped when empty), applies overrides of the form
// "section.key=value" and validates the result.
func Load(path string, overrides []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		// JSON is a subset of YAML.
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for _, o := range overrides {
		if err := applyOverride(raw, o); err != nil {
			return Config{}, err
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyOverride sets a dotted key in raw. The value is parsed as a YAML scalar, so
// "4" becomes a number and "true" a boolean.
func applyOverride(raw map[string]any, override string) error {
	key, value, ok := strings.Cut(override, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid override %q: expected key=value", override)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	switch parsed.(type) {
	case bool, int, float64:
	default:
		parsed = value
	}

	parts := strings.Split(key, ".")
	node := raw
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[p] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = parsed
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	switch c.Browser.Format {
	case "png", "jpeg":
	default:
		return fmt.Errorf("invalid browser format %q: expected png or jpeg", c.Browser.Format)
	}
	if c.Browser.Quality < 0 || c.Browser.Quality > 100 {
		return fmt.Errorf("invalid browser quality %d", c.Browser.Quality)
	}
	if c.Render.Parallelism < 1 {
		return fmt.Errorf("render parallelism must be at least 1, got %d", c.Render.Parallelism)
	}
	if c.Render.Timeout < 0 {
		return fmt.Errorf("render timeout must not be negative")
	}
	if c.Render.Encoder == "" {
		return fmt.Errorf("render encoder is required")
	}
	if c.SourceMaps.CacheSize < 0 {
		return fmt.Errorf("source map cache size must not be negative")
	}
	return nil
}
