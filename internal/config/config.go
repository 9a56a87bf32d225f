// ABOUTME: Configuration loading with viper
// ABOUTME: Defaults, config file, RESONATE_CAPTURE_ environment overrides and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. RESONATE_CAPTURE_AUDIO_SAMPLE_RATE
const EnvPrefix = "RESONATE_CAPTURE"

// Default configuration values
const (
	defaultSampleRate        = audio.DefaultSampleRate
	defaultBlockFrames       = audio.BlockFrames
	defaultBufferCapacity    = 96000 // one second of stereo at 48 kHz
	defaultDriftTolerance    = 100   // ms
	defaultFrameRate         = 60
	defaultWarmupFrames      = 3
	defaultLagSpikeThreshold = time.Second
	defaultMaxDesync         = 300 * time.Millisecond
	defaultMinIncrement      = time.Millisecond
	defaultBitrate           = 128000
	defaultLogMaxSizeMB      = 10
	defaultLogMaxBackups     = 3
)

// Config holds all configuration for the application
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio"`
	Capture CaptureConfig `mapstructure:"capture"`
	Looper  LooperConfig  `mapstructure:"looper"`
	Encoder EncoderConfig `mapstructure:"encoder"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AudioConfig holds mixer configuration
type AudioConfig struct {
	SampleRate       int     `mapstructure:"sample_rate"`
	BlockFrames      int     `mapstructure:"block_frames"`
	BufferCapacity   int     `mapstructure:"buffer_capacity"` // samples per source buffer and queue
	Limiter          string  `mapstructure:"limiter"`         // soft, hard, bypass
	GameOffsetMs     int     `mapstructure:"game_offset_ms"`
	DriftToleranceMs int     `mapstructure:"drift_tolerance_ms"`
	GameGain         float64 `mapstructure:"game_gain"`
	MicGain          float64 `mapstructure:"mic_gain"`
}

// CaptureConfig selects the audio inputs
type CaptureConfig struct {
	Microphone       bool    `mapstructure:"microphone"`
	MicrophoneDevice string  `mapstructure:"microphone_device"`
	GameDevice       string  `mapstructure:"game_device"`
	Loopback         bool    `mapstructure:"loopback"`  // capture game audio from a playback device
	GameFile         string  `mapstructure:"game_file"` // mp3 or flac played as game audio
	ToneHz           float64 `mapstructure:"tone_hz"`   // test tone as game audio when > 0
}

// LooperConfig holds frame loop configuration
type LooperConfig struct {
	FrameRate         int           `mapstructure:"frame_rate"`
	WarmupFrames      int           `mapstructure:"warmup_frames"`
	LagSpikeThreshold time.Duration `mapstructure:"lag_spike_threshold"`
	MaxDesync         time.Duration `mapstructure:"max_desync"`
	MinIncrement      time.Duration `mapstructure:"min_increment"`
}

// EncoderConfig holds recorder configuration
type EncoderConfig struct {
	Codec   string `mapstructure:"codec"` // opus, pcm
	Output  string `mapstructure:"output"`
	Bitrate int    `mapstructure:"bitrate"`
	Monitor bool   `mapstructure:"monitor"`
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	TUI        bool   `mapstructure:"tui"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith loads through v, which may already carry bound command-line flags
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("resonate-capture")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/resonate-capture")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", defaultSampleRate)
	v.SetDefault("audio.block_frames", defaultBlockFrames)
	v.SetDefault("audio.buffer_capacity", defaultBufferCapacity)
	v.SetDefault("audio.limiter", "soft")
	v.SetDefault("audio.game_offset_ms", 0)
	v.SetDefault("audio.drift_tolerance_ms", defaultDriftTolerance)
	v.SetDefault("audio.game_gain", 1.0)
	v.SetDefault("audio.mic_gain", 1.0)

	v.SetDefault("capture.microphone", true)
	v.SetDefault("capture.microphone_device", "")
	v.SetDefault("capture.game_device", "")
	v.SetDefault("capture.loopback", false)
	v.SetDefault("capture.game_file", "")
	v.SetDefault("capture.tone_hz", 0.0)

	v.SetDefault("looper.frame_rate", defaultFrameRate)
	v.SetDefault("looper.warmup_frames", defaultWarmupFrames)
	v.SetDefault("looper.lag_spike_threshold", defaultLagSpikeThreshold)
	v.SetDefault("looper.max_desync", defaultMaxDesync)
	v.SetDefault("looper.min_increment", defaultMinIncrement)

	v.SetDefault("encoder.codec", "opus")
	v.SetDefault("encoder.output", "capture.rcap")
	v.SetDefault("encoder.bitrate", defaultBitrate)
	v.SetDefault("encoder.monitor", false)

	v.SetDefault("logging.file", "resonate-capture.log")
	v.SetDefault("logging.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("logging.max_backups", defaultLogMaxBackups)
	v.SetDefault("logging.tui", true)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Audio.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		if c.Encoder.Codec == "opus" {
			return fmt.Errorf("audio.sample_rate %d is not supported by opus (use 8000, 12000, 16000, 24000 or 48000)", c.Audio.SampleRate)
		}
		if c.Audio.SampleRate <= 0 {
			return fmt.Errorf("audio.sample_rate must be positive")
		}
	}
	if c.Audio.BlockFrames < 1 {
		return fmt.Errorf("audio.block_frames must be at least 1")
	}
	if c.Audio.BufferCapacity < c.Audio.BlockFrames*audio.StereoChannels {
		return fmt.Errorf("audio.buffer_capacity must hold at least one block (%d samples)", c.Audio.BlockFrames*audio.StereoChannels)
	}
	if _, err := audio.ParseLimiterMode(c.Audio.Limiter); err != nil {
		return fmt.Errorf("audio.limiter: %w", err)
	}
	if c.Audio.DriftToleranceMs < 1 {
		return fmt.Errorf("audio.drift_tolerance_ms must be at least 1")
	}
	if c.Audio.GameGain < 0 || c.Audio.MicGain < 0 {
		return fmt.Errorf("audio gains must not be negative")
	}
	if abs(c.Audio.GameOffsetMs)*c.Audio.SampleRate/1000*audio.StereoChannels > c.Audio.BufferCapacity {
		return fmt.Errorf("audio.game_offset_ms %d does not fit audio.buffer_capacity", c.Audio.GameOffsetMs)
	}

	if c.Capture.GameFile != "" && c.Capture.ToneHz > 0 {
		return fmt.Errorf("capture.game_file and capture.tone_hz are mutually exclusive")
	}

	if c.Looper.FrameRate < 1 {
		return fmt.Errorf("looper.frame_rate must be at least 1")
	}
	if c.Looper.WarmupFrames < 0 {
		return fmt.Errorf("looper.warmup_frames must not be negative")
	}
	if c.Looper.LagSpikeThreshold <= 0 || c.Looper.MaxDesync <= 0 || c.Looper.MinIncrement <= 0 {
		return fmt.Errorf("looper durations must be positive")
	}

	validCodecs := map[string]bool{"opus": true, "pcm": true}
	if !validCodecs[c.Encoder.Codec] {
		return fmt.Errorf("encoder.codec must be one of: opus, pcm")
	}
	if c.Encoder.Output == "" {
		return fmt.Errorf("encoder.output is required")
	}

	return nil
}

// GameOffset returns the startup offset as a duration
func (c *AudioConfig) GameOffset() time.Duration {
	return time.Duration(c.GameOffsetMs) * time.Millisecond
}

// DriftTolerance returns the drift tolerance as a duration
func (c *AudioConfig) DriftTolerance() time.Duration {
	return time.Duration(c.DriftToleranceMs) * time.Millisecond
}

// FrameInterval returns the target time between frames
func (c *LooperConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
