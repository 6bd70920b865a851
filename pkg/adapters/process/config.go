package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncoderConfig describes an external encoder fed with frames on stdin.
//
// Args may contain the placeholders {output}, {fps}, {width}, {height} and {frames}.
type EncoderConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Format      string            `yaml:"format" json:"format"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of encoders.yaml.
type ConfigFile struct {
	Encoders []EncoderConfig `yaml:"encoders" json:"encoders"`
}

// BuiltinEncoders returns the encoders available without a config file.
func BuiltinEncoders() map[string]EncoderConfig {
	return map[string]EncoderConfig{
		"ffmpeg": {
			Name:    "ffmpeg",
			Command: "ffmpeg",
			Args: []string{
				"-y", "-loglevel", "error",
				"-f", "image2pipe", "-framerate", "{fps}", "-i", "-",
				"-c:v", "libx264", "-pix_fmt", "yuv420p",
				"{output}",
			},
			Format:      "mp4",
			Description: "H.264 video through ffmpeg",
		},
	}
}

// LoadEncoders reads a configuration file (YAML or JSON) and returns the builtin
// encoders overridden by the ones it declares. A missing file yields the builtins.
func LoadEncoders(path string) (map[string]EncoderConfig, error) {
	encoders := BuiltinEncoders()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return encoders, nil
		}
		return nil, fmt.Errorf("failed to read encoders config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, enc := range cfg.Encoders {
		if enc.Name == "" || enc.Command == "" {
			continue
		}
		encoders[enc.Name] = enc
	}
	return encoders, nil
}
