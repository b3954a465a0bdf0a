// SPDX-License-Identifier: MIT

// Package config loads the application configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"voicepipe/internal/enhance"
	"voicepipe/pkg/bitint"
)

// Limits and defaults for the audio settings.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxFrames     = 8192

	DefaultSampleRate = 16000
	DefaultFrames     = 4096
	DefaultMode       = "voice_chat"

	DefaultTelemetryPort     = 8080
	DefaultTelemetryInterval = 100 * time.Millisecond
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error"
	Audio     AudioConfig     `yaml:"audio"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Settings holds per-field overrides of the pipeline's processing
	// settings, applied after the mode overlay. Field names and value
	// types match Pipeline.UpdateSettings.
	Settings map[string]any `yaml:"settings,omitempty"`
}

// AudioConfig holds the offline processing parameters.
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`       // Hz; only used when the input carries no rate of its own
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // samples per Process call, power of two
	Mode            string `yaml:"mode"`              // processing mode name, see enhance.ParseMode
}

// TelemetryConfig holds the websocket metrics endpoint settings.
type TelemetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Port         int           `yaml:"port"`
	SendInterval time.Duration `yaml:"send_interval"`
}

// LoadConfig loads the configuration from the YAML file at path. An empty
// path falls back to "voicepipe.yaml" in the working directory if present,
// else built-in defaults. Environment overrides (VOICEPIPE_*) apply after
// the file, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFrames,
			Mode:            DefaultMode,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Port:         DefaultTelemetryPort,
			SendInterval: DefaultTelemetryInterval,
		},
	}

	if path == "" {
		if _, err := os.Stat("voicepipe.yaml"); err == nil {
			path = "voicepipe.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the bounds the rest of the application assumes.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %d outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxFrames {
		return fmt.Errorf("audio.frames_per_buffer %d must be a power of two up to %d", c.Audio.FramesPerBuffer, MaxFrames)
	}
	if _, err := enhance.ParseMode(c.Audio.Mode); err != nil {
		return fmt.Errorf("audio.mode: %w", err)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Port <= 0 || c.Telemetry.Port > 65535 {
			return fmt.Errorf("telemetry.port %d outside (0, 65535]", c.Telemetry.Port)
		}
		if c.Telemetry.SendInterval < 0 {
			return fmt.Errorf("telemetry.send_interval must not be negative")
		}
	}
	return nil
}

// Mode returns the parsed processing mode. Validate must have accepted the
// configuration first.
func (c *Config) Mode() enhance.Mode {
	mode, _ := enhance.ParseMode(c.Audio.Mode)
	return mode
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("VOICEPIPE_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("VOICEPIPE_MODE"); ok {
		c.Audio.Mode = val
	}
	if val, ok := os.LookupEnv("VOICEPIPE_SAMPLE_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.SampleRate = n
		}
	}
	if val, ok := os.LookupEnv("VOICEPIPE_TELEMETRY_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Telemetry.Enabled = b
		}
	}
	if val, ok := os.LookupEnv("VOICEPIPE_TELEMETRY_PORT"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Telemetry.Port = n
		}
	}
}
