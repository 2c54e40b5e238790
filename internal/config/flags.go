package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagData     = flag.String("data", "", "Game data directory (added with highest priority)")
	flagEvents   = flag.String("events", "", "Path to the frame event table (YAML)")
	flagSpeed    = flag.Float64("speed", 0, "Playback speed multiplier")
	flagTickRate = flag.Int("tick-rate", 0, "Fixed updates per second")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Data.Dirs = append(cfg.Data.Dirs, *flagData)
	}
	if *flagEvents != "" {
		cfg.Playback.EventTable = *flagEvents
	}
	if *flagSpeed > 0 {
		cfg.Playback.Speed = float32(*flagSpeed)
	}
	if *flagTickRate > 0 {
		cfg.Playback.TickRate = *flagTickRate
	}
}
