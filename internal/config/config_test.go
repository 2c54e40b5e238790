package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test playback defaults
	if cfg.Playback.Speed != 1.0 {
		t.Errorf("expected speed 1.0, got %f", cfg.Playback.Speed)
	}
	if cfg.Playback.TickRate != 60 {
		t.Errorf("expected tick rate 60, got %d", cfg.Playback.TickRate)
	}
	if cfg.Playback.EventTable != "" {
		t.Errorf("expected no event table, got %s", cfg.Playback.EventTable)
	}

	// Test loader defaults
	if cfg.Loader.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Loader.Workers)
	}
	if len(cfg.Data.Dirs) != 1 || cfg.Data.Dirs[0] != "." {
		t.Errorf("expected data dirs [.], got %v", cfg.Data.Dirs)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestTickDelta(t *testing.T) {
	cfg := Default()
	cfg.Playback.TickRate = 50
	if got := cfg.TickDelta(); got != 0.02 {
		t.Errorf("expected tick delta 0.02, got %f", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Playback.Speed = -1
	cfg.Playback.TickRate = 0
	cfg.Loader.Workers = 0
	cfg.Audio.Volume = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"playback.speed", "playback.tick_rate", "loader.workers", "audio.volume"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected error to mention %s, got %v", field, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
playback:
  speed: 0.5
  tick_rate: 30
  event_table: "events.yaml"

data:
  dirs: ["/srv/rose", "/srv/rose-patch"]

loader:
  workers: 8
  cache_mb: 16

viewer:
  refresh_rate: 20

audio:
  enabled: true
  volume: 0.5
  sounds:
    SOUND_FOOTSTEP: "sound/step.wav"

logging:
  level: "debug"
  log_file: "motion.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Playback.Speed != 0.5 {
		t.Errorf("expected speed 0.5, got %f", cfg.Playback.Speed)
	}
	if cfg.Playback.TickRate != 30 {
		t.Errorf("expected tick rate 30, got %d", cfg.Playback.TickRate)
	}
	if cfg.Playback.EventTable != "events.yaml" {
		t.Errorf("expected event table events.yaml, got %s", cfg.Playback.EventTable)
	}
	if len(cfg.Data.Dirs) != 2 || cfg.Data.Dirs[1] != "/srv/rose-patch" {
		t.Errorf("unexpected data dirs %v", cfg.Data.Dirs)
	}
	if cfg.Loader.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Loader.Workers)
	}
	if cfg.Loader.CacheMB != 16 {
		t.Errorf("expected cache 16MB, got %d", cfg.Loader.CacheMB)
	}
	if cfg.Viewer.RefreshRate != 20 {
		t.Errorf("expected refresh rate 20, got %d", cfg.Viewer.RefreshRate)
	}
	// Untouched fields keep their defaults
	if cfg.Viewer.EventLogLines != 8 {
		t.Errorf("expected default event log lines 8, got %d", cfg.Viewer.EventLogLines)
	}

	if !cfg.Audio.Enabled || cfg.Audio.Volume != 0.5 {
		t.Errorf("expected audio enabled at 0.5, got %+v", cfg.Audio)
	}
	if cfg.Audio.Sounds["SOUND_FOOTSTEP"] != "sound/step.wav" {
		t.Errorf("expected footstep sound, got %v", cfg.Audio.Sounds)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "motion.log" {
		t.Errorf("expected log file 'motion.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
playback:
  tick_rate: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ROSE_MOTION_SPEED", "2.5")
	t.Setenv("ROSE_MOTION_DATA_DIRS", "/a:/b")
	t.Setenv("ROSE_MOTION_LOADER_WORKERS", "2")

	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		t.Fatalf("failed to apply env: %v", err)
	}

	if cfg.Playback.Speed != 2.5 {
		t.Errorf("expected speed 2.5 from env, got %f", cfg.Playback.Speed)
	}
	if len(cfg.Data.Dirs) != 2 || cfg.Data.Dirs[0] != "/a" || cfg.Data.Dirs[1] != "/b" {
		t.Errorf("expected data dirs [/a /b], got %v", cfg.Data.Dirs)
	}
	if cfg.Loader.Workers != 2 {
		t.Errorf("expected 2 workers from env, got %d", cfg.Loader.Workers)
	}
	// Unset variables leave values alone
	if cfg.Playback.TickRate != 60 {
		t.Errorf("expected default tick rate 60, got %d", cfg.Playback.TickRate)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("ROSE_MOTION_TICK_RATE", "fast")

	err := applyEnv(Default())
	if err == nil {
		t.Fatal("expected error for non-numeric tick rate")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("expected wrapped env error, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create rose-motion.yaml in current directory
	configPath := filepath.Join(tmpDir, "rose-motion.yaml")
	if err := os.WriteFile(configPath, []byte("playback:\n  speed: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find rose-motion.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "data flag",
			setup: func() {
				*flagData = "/srv/rose"
			},
			verify: func(cfg *Config) {
				dirs := cfg.Data.Dirs
				if len(dirs) != 2 || dirs[len(dirs)-1] != "/srv/rose" {
					t.Errorf("expected /srv/rose appended last, got %v", dirs)
				}
			},
			teardown: func() {
				*flagData = ""
			},
		},
		{
			name: "events flag",
			setup: func() {
				*flagEvents = "events.yaml"
			},
			verify: func(cfg *Config) {
				if cfg.Playback.EventTable != "events.yaml" {
					t.Errorf("expected event table events.yaml, got %s", cfg.Playback.EventTable)
				}
			},
			teardown: func() {
				*flagEvents = ""
			},
		},
		{
			name: "speed and tick rate flags",
			setup: func() {
				*flagSpeed = 0.25
				*flagTickRate = 120
			},
			verify: func(cfg *Config) {
				if cfg.Playback.Speed != 0.25 {
					t.Errorf("expected speed 0.25, got %f", cfg.Playback.Speed)
				}
				if cfg.Playback.TickRate != 120 {
					t.Errorf("expected tick rate 120, got %d", cfg.Playback.TickRate)
				}
			},
			teardown: func() {
				*flagSpeed = 0
				*flagTickRate = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
playback:
  speed: 0.5
  tick_rate: 30
loader:
  workers: 6
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Env overrides the file, flags override env
	t.Setenv("ROSE_MOTION_TICK_RATE", "90")
	t.Setenv("ROSE_MOTION_LOADER_WORKERS", "3")

	*flagConfig = configPath
	*flagTickRate = 120
	defer func() {
		*flagConfig = ""
		*flagTickRate = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Playback.TickRate != 120 {
		t.Errorf("expected tick rate 120 from flag, got %d", cfg.Playback.TickRate)
	}
	if cfg.Loader.Workers != 3 {
		t.Errorf("expected 3 workers from env, got %d", cfg.Loader.Workers)
	}
	// Speed should be from file (0.5) since nothing overrides it
	if cfg.Playback.Speed != 0.5 {
		t.Errorf("expected speed 0.5 from file, got %f", cfg.Playback.Speed)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("loader:\n  workers: -1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected invalid config to be rejected")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Playback.EventTable = "events.yaml"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Playback.EventTable != "events.yaml" {
		t.Errorf("expected event table to survive save, got %s", loaded.Playback.EventTable)
	}
}
