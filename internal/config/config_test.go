// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, file values, environment overrides and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 1024, cfg.Audio.BlockFrames)
	assert.Equal(t, 96000, cfg.Audio.BufferCapacity)
	assert.Equal(t, "soft", cfg.Audio.Limiter)
	assert.Equal(t, 100*time.Millisecond, cfg.Audio.DriftTolerance())
	assert.Zero(t, cfg.Audio.GameOffset())
	assert.Equal(t, 1.0, cfg.Audio.GameGain)

	assert.True(t, cfg.Capture.Microphone)
	assert.False(t, cfg.Capture.Loopback)

	assert.Equal(t, 60, cfg.Looper.FrameRate)
	assert.Equal(t, 3, cfg.Looper.WarmupFrames)
	assert.Equal(t, time.Second, cfg.Looper.LagSpikeThreshold)
	assert.Equal(t, 300*time.Millisecond, cfg.Looper.MaxDesync)
	assert.Equal(t, time.Millisecond, cfg.Looper.MinIncrement)

	assert.Equal(t, "opus", cfg.Encoder.Codec)
	assert.Equal(t, 128000, cfg.Encoder.Bitrate)

	assert.Equal(t, "resonate-capture.log", cfg.Logging.File)
	assert.True(t, cfg.Logging.TUI)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
audio:
  limiter: hard
  game_offset_ms: -20
  mic_gain: 0.5
capture:
  microphone: false
  tone_hz: 220
looper:
  frame_rate: 30
  max_desync: 250ms
encoder:
  codec: pcm
  output: session.rcap
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "hard", cfg.Audio.Limiter)
	assert.Equal(t, -20*time.Millisecond, cfg.Audio.GameOffset())
	assert.Equal(t, 0.5, cfg.Audio.MicGain)
	assert.False(t, cfg.Capture.Microphone)
	assert.Equal(t, 220.0, cfg.Capture.ToneHz)
	assert.Equal(t, 30, cfg.Looper.FrameRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Looper.MaxDesync)
	assert.Equal(t, "pcm", cfg.Encoder.Codec)
	assert.Equal(t, "session.rcap", cfg.Encoder.Output)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RESONATE_CAPTURE_AUDIO_GAME_OFFSET_MS", "50")
	t.Setenv("RESONATE_CAPTURE_LOOPER_FRAME_RATE", "144")
	t.Setenv("RESONATE_CAPTURE_ENCODER_CODEC", "pcm")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Audio.GameOffset())
	assert.Equal(t, 144, cfg.Looper.FrameRate)
	assert.Equal(t, "pcm", cfg.Encoder.Codec)
}

func TestLoadWith_FlagValuesWin(t *testing.T) {
	v := viper.New()
	v.Set("encoder.output", "flag.rcap")

	cfg, err := LoadWith(v, "")
	require.NoError(t, err)
	assert.Equal(t, "flag.rcap", cfg.Encoder.Output)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"valid", func(*Config) {}, ""},
		{"opus rate", func(c *Config) { c.Audio.SampleRate = 44100 }, "not supported by opus"},
		{"pcm accepts any rate", func(c *Config) { c.Audio.SampleRate = 44100; c.Encoder.Codec = "pcm" }, ""},
		{"block size", func(c *Config) { c.Audio.BlockFrames = 0 }, "block_frames"},
		{"small buffer", func(c *Config) { c.Audio.BufferCapacity = 1000 }, "buffer_capacity"},
		{"limiter", func(c *Config) { c.Audio.Limiter = "brickwall" }, "audio.limiter"},
		{"negative gain", func(c *Config) { c.Audio.MicGain = -1 }, "gains"},
		{"offset too large", func(c *Config) { c.Audio.GameOffsetMs = -2000 }, "game_offset_ms"},
		{"file and tone", func(c *Config) { c.Capture.GameFile = "a.mp3"; c.Capture.ToneHz = 440 }, "mutually exclusive"},
		{"frame rate", func(c *Config) { c.Looper.FrameRate = 0 }, "frame_rate"},
		{"durations", func(c *Config) { c.Looper.MinIncrement = 0 }, "durations"},
		{"codec", func(c *Config) { c.Encoder.Codec = "aac" }, "encoder.codec"},
		{"output", func(c *Config) { c.Encoder.Output = "" }, "encoder.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestFrameInterval(t *testing.T) {
	c := LooperConfig{FrameRate: 50}
	assert.Equal(t, 20*time.Millisecond, c.FrameInterval())
}
