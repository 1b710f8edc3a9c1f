// Package config holds environment-driven tuning for clipbooth. Command
// flags override these values. Recording length is fixed and not
// configurable.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the environment configuration, read from CLIPBOOTH_* variables.
type Config struct {
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"."`
	VideoBitrate string `envconfig:"VIDEO_BITRATE" default:"8M"`
	AudioBitrate string `envconfig:"AUDIO_BITRATE" default:"128k"`
	FrameRate    int    `envconfig:"FRAME_RATE" default:"30"`
	VideoDevice  string `envconfig:"VIDEO_DEVICE"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("clipbooth", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment config: %w", err)
	}
	if cfg.FrameRate < 1 {
		return Config{}, fmt.Errorf("frame rate must be positive, got %d", cfg.FrameRate)
	}
	return cfg, nil
}
