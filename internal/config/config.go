// Package config handles motion tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all settings shared by the motion tools.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Data     DataConfig     `yaml:"data"`
	Loader   LoaderConfig   `yaml:"loader"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Audio    AudioConfig    `yaml:"audio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlaybackConfig holds cursor and tick settings.
type PlaybackConfig struct {
	Speed      float32 `yaml:"speed" env:"ROSE_MOTION_SPEED"`
	TickRate   int     `yaml:"tick_rate" env:"ROSE_MOTION_TICK_RATE"` // Fixed updates per second
	EventTable string  `yaml:"event_table" env:"ROSE_MOTION_EVENT_TABLE"`
}

// DataConfig holds game data locations.
type DataConfig struct {
	Dirs []string `yaml:"dirs" env:"ROSE_MOTION_DATA_DIRS" envSeparator:":"` // Later entries take priority
}

// LoaderConfig holds background clip loading settings.
type LoaderConfig struct {
	Workers int `yaml:"workers" env:"ROSE_MOTION_LOADER_WORKERS"`
	CacheMB int `yaml:"cache_mb" env:"ROSE_MOTION_LOADER_CACHE_MB"`
}

// ViewerConfig holds terminal viewer settings.
type ViewerConfig struct {
	RefreshRate   int `yaml:"refresh_rate" env:"ROSE_MOTION_VIEWER_REFRESH_RATE"`
	EventLogLines int `yaml:"event_log_lines" env:"ROSE_MOTION_VIEWER_EVENT_LOG_LINES"`
}

// AudioConfig holds the sound cues played for frame events.
type AudioConfig struct {
	Enabled bool              `yaml:"enabled" env:"ROSE_MOTION_AUDIO"`
	Volume  float64           `yaml:"volume" env:"ROSE_MOTION_AUDIO_VOLUME"` // 0.0 to 1.0
	Sounds  map[string]string `yaml:"sounds"`                                // Event flag name -> WAV file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"ROSE_MOTION_LOG_LEVEL"`
	LogFile    string `yaml:"log_file" env:"ROSE_MOTION_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Speed:    1.0,
			TickRate: 60,
		},
		Data: DataConfig{
			Dirs: []string{"."},
		},
		Loader: LoaderConfig{
			Workers: 4,
			CacheMB: 64,
		},
		Viewer: ViewerConfig{
			RefreshRate:   30,
			EventLogLines: 8,
		},
		Audio: AudioConfig{
			Volume: 0.8,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// TickDelta returns the fixed update step in seconds.
func (c *Config) TickDelta() float32 {
	return 1 / float32(c.Playback.TickRate)
}

// Validate reports settings that would stall or break playback.
func (c *Config) Validate() error {
	var errs []error
	if c.Playback.Speed < 0 {
		errs = append(errs, fmt.Errorf("playback.speed must not be negative, got %g", c.Playback.Speed))
	}
	if c.Playback.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("playback.tick_rate must be positive, got %d", c.Playback.TickRate))
	}
	if c.Loader.Workers <= 0 {
		errs = append(errs, fmt.Errorf("loader.workers must be positive, got %d", c.Loader.Workers))
	}
	if c.Loader.CacheMB < 0 {
		errs = append(errs, fmt.Errorf("loader.cache_mb must not be negative, got %d", c.Loader.CacheMB))
	}
	if c.Viewer.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("viewer.refresh_rate must be positive, got %d", c.Viewer.RefreshRate))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume must be between 0 and 1, got %g", c.Audio.Volume))
	}
	return errors.Join(errs...)
}
