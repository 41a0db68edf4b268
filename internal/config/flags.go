package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses command-line flags and returns a Config.
// Precedence is defaults, then the optional YAML config file, then flags.
func ParseFlags() (*Config, error) {
	return parseFlags(os.Args[1:], flag.ExitOnError)
}

func parseFlags(args []string, errorHandling flag.ErrorHandling) (*Config, error) {
	cfg := DefaultConfig()

	// The config file has to be applied before flag registration so that
	// explicit flags still win over file values.
	filePath, err := configFileArg(args)
	if err != nil {
		return nil, err
	}
	if filePath != "" {
		if err := LoadFile(filePath, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("agenthost", errorHandling)
	fs.String("config", filePath, "Path to a YAML config file")

	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Deployment mode: dev or packaged")
	fs.StringVar(&cfg.ResourceDir, "resource-dir", cfg.ResourceDir, "Application resource directory (packaged mode)")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for per-worker log files")
	fs.BoolVar(&cfg.DiscardLogs, "discard-logs", cfg.DiscardLogs, "Discard worker output instead of writing log files")

	fs.StringVar(&cfg.PythonPath, "python", cfg.PythonPath, "Python interpreter to probe instead of the builtin candidates")
	fs.StringVar(&cfg.UVPath, "uv", cfg.UVPath, "uv binary to probe instead of the builtin candidates")

	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Delay before the post-launch liveness sweep")
	fs.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "Per-worker pause before the immediate-exit check")
	fs.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Per-candidate tool probe deadline")
	fs.DurationVar(&cfg.SyncTimeout, "sync-timeout", cfg.SyncTimeout, "Dependency sync deadline")
	fs.DurationVar(&cfg.InitTimeout, "init-timeout", cfg.InitTimeout, "Storage init deadline")
	fs.BoolVar(&cfg.SkipSync, "skip-sync", cfg.SkipSync, "Skip dependency sync (diagnostics only)")
	fs.BoolVar(&cfg.SkipStorage, "skip-storage", cfg.SkipStorage, "Skip storage initialization")

	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics listen address")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose (debug) logging")

	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the worker invocations and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `agenthost - backend process supervisor

Usage:
  agenthost [flags]

Deployment:
`)
		printFlagCategory(fs, []string{"config", "mode", "resource-dir", "log-dir", "discard-logs"})

		fmt.Fprintf(fs.Output(), "\nTool Resolution:\n")
		printFlagCategory(fs, []string{"python", "uv", "probe-timeout"})

		fmt.Fprintf(fs.Output(), "\nStartup:\n")
		printFlagCategory(fs, []string{"sweep-interval", "settle-delay", "sync-timeout", "init-timeout", "skip-sync", "skip-storage"})

		fmt.Fprintf(fs.Output(), "\nObservability:\n")
		printFlagCategory(fs, []string{"metrics", "log-format", "v"})

		fmt.Fprintf(fs.Output(), "\nDiagnostics:\n")
		printFlagCategory(fs, []string{"print-cmd"})

		fmt.Fprintf(fs.Output(), `
Examples:
  # Run against a development checkout
  agenthost -mode dev -v

  # Run out of a packaged bundle
  agenthost -mode packaged -resource-dir /opt/agenthost/resources
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return cfg, nil
}

// printFlagCategory prints a group of flags in usage order.
func printFlagCategory(fs *flag.FlagSet, names []string) {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(fs.Output(), "  -%-18s %s\n", f.Name, f.Usage)
	}
}

// configFileArg extracts the -config flag value without disturbing the
// main flag set.
func configFileArg(args []string) (string, error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-config" || arg == "--config" {
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag needs an argument: -config")
			}
			return args[i+1], nil
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v, nil
		}
		if v, ok := strings.CutPrefix(arg, "-config="); ok {
			return v, nil
		}
	}
	return "", nil
}
