package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/reel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "reel.yaml", `
log:
  level: debug
browser:
  format: jpeg
  quality: 80
  ready_timeout: 5s
render:
  parallelism: 4
  timeout: 2m
  encoder: ffmpeg
redis:
  addr: localhost:6379
  redact:
    - token=[^&]+
`)
	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, "jpeg", cfg.Browser.Format)
	assert.Equal(t, 80, cfg.Browser.Quality)
	assert.Equal(t, 5*time.Second, cfg.Browser.ReadyTimeout)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Render.Parallelism)
	assert.Equal(t, 2*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, "ffmpeg", cfg.Render.Encoder)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "reel:", cfg.Redis.Prefix)
	assert.Equal(t, []string{"token=[^&]+"}, cfg.Redis.Redact)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "reel.json", `{"render": {"parallelism": 2, "output": "dist"}}`)
	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Render.Parallelism)
	assert.Equal(t, "dist", cfg.Render.Output)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeFile(t, "reel.yaml", "render:\n  parallelism: 2\n")
	cfg, err := config.Load(path, []string{
		"render.parallelism=8",
		"render.timeout=30s",
		"browser.headless=false",
		"server.addr=:9090",
		"redis.redact=token=\\w+,secret",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Render.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.Render.Timeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{`token=\w+`, "secret"}, cfg.Redis.Redact)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		overrides []string
	}{
		{name: "unknown key", content: "render:\n  paralelism: 2\n"},
		{name: "malformed yaml", content: "render: [\n"},
		{name: "bad duration", content: "render:\n  timeout: soon\n"},
		{name: "bad override", overrides: []string{"render.parallelism"}},
		{name: "invalid format", overrides: []string{"browser.format=gif"}},
		{name: "invalid level", overrides: []string{"log.level=loud"}},
		{name: "zero parallelism", overrides: []string{"render.parallelism=0"}},
		{name: "negative timeout", overrides: []string{"render.timeout=-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.content != "" {
				path = writeFile(t, "reel.yaml", tt.content)
			}
			_, err := config.Load(path, tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
