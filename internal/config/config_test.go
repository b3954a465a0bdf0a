// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/enhance"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSampleRate, cfg.Audio.SampleRate)
	assert.Equal(t, DefaultFrames, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, enhance.VoiceChat, cfg.Mode())
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicepipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
audio:
  sample_rate: 48000
  frames_per_buffer: 2048
  mode: broadcast
telemetry:
  enabled: true
  port: 9100
  send_interval: 50ms
settings:
  noise_suppression_strength: 0.9
  eq_enabled: false
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 2048, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, enhance.Broadcast, cfg.Mode())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 9100, cfg.Telemetry.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Telemetry.SendInterval)
	assert.Equal(t, 0.9, cfg.Settings["noise_suppression_strength"])
	assert.Equal(t, false, cfg.Settings["eq_enabled"])
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio: ["), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("VOICEPIPE_LOG_LEVEL", "warn")
	t.Setenv("VOICEPIPE_MODE", "conference")
	t.Setenv("VOICEPIPE_SAMPLE_RATE", "44100")
	t.Setenv("VOICEPIPE_TELEMETRY_ENABLED", "true")
	t.Setenv("VOICEPIPE_TELEMETRY_PORT", "9200")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, enhance.Conference, cfg.Mode())
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 9200, cfg.Telemetry.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogLevel: "info",
			Audio: AudioConfig{
				SampleRate:      16000,
				FramesPerBuffer: 4096,
				Mode:            "voice_chat",
			},
			Telemetry: TelemetryConfig{Port: DefaultTelemetryPort},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }, true},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 400000 }, true},
		{"frames not power of two", func(c *Config) { c.Audio.FramesPerBuffer = 1000 }, true},
		{"frames too large", func(c *Config) { c.Audio.FramesPerBuffer = 16384 }, true},
		{"unknown mode", func(c *Config) { c.Audio.Mode = "studio" }, true},
		{"bad telemetry port", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Port = 0 }, true},
		{"telemetry port ignored when disabled", func(c *Config) { c.Telemetry.Port = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
