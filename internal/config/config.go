// Package config provides configuration management for agenthost.
package config

import "time"

// Deployment modes. Development resolves the backend out of a source
// checkout; packaged resolves it out of the application's resource
// directory.
const (
	ModeDevelopment = "dev"
	ModePackaged    = "packaged"
)

// Config holds all configuration options for the supervisor.
type Config struct {
	// Deployment
	Mode        string `yaml:"mode"`         // dev or packaged
	ResourceDir string `yaml:"resource_dir"` // resource root (packaged mode)
	LogDir      string `yaml:"log_dir"`      // per-worker log file directory
	DiscardLogs bool   `yaml:"discard_logs"` // discard worker output instead of logging it

	// Tool resolution overrides. When set, the given invocation is the
	// only candidate probed.
	PythonPath string `yaml:"python_path"`
	UVPath     string `yaml:"uv_path"`

	// Startup behaviour
	SweepInterval time.Duration `yaml:"sweep_interval"` // delay before the post-launch liveness sweep
	SettleDelay   time.Duration `yaml:"settle_delay"`   // per-worker pause before the immediate-exit check
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`  // per-candidate tool probe deadline
	SyncTimeout   time.Duration `yaml:"sync_timeout"`   // dependency sync deadline
	InitTimeout   time.Duration `yaml:"init_timeout"`   // storage init deadline
	SkipSync      bool          `yaml:"skip_sync"`      // skip dependency sync (diagnostics only)
	SkipStorage   bool          `yaml:"skip_storage"`   // skip storage initialization

	// Observability
	MetricsAddr string `yaml:"metrics_addr"`
	LogFormat   string `yaml:"log_format"` // json, text
	Verbose     bool   `yaml:"verbose"`

	// Diagnostic modes (flag-only, never read from the config file)
	PrintCmd bool `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeDevelopment,

		SweepInterval: time.Second,
		SettleDelay:   500 * time.Millisecond,
		ProbeTimeout:  10 * time.Second,
		SyncTimeout:   10 * time.Minute,
		InitTimeout:   2 * time.Minute,

		MetricsAddr: "127.0.0.1:17092",
		LogFormat:   "json",
	}
}
