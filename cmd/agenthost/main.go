// Package main provides the agenthost CLI entry point.
//
// agenthost supervises the backend of the desktop application: it locates
// the Python runtime, synchronizes its dependencies, launches the agent
// workers and the API server, and guarantees every child process is torn
// down when the host exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthost/agenthost/internal/config"
	"github.com/agenthost/agenthost/internal/logging"
	"github.com/agenthost/agenthost/internal/metrics"
	"github.com/agenthost/agenthost/internal/process"
	"github.com/agenthost/agenthost/internal/supervisor"
	"github.com/agenthost/agenthost/internal/toolchain"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/agenthost
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("agenthost %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"mode", cfg.Mode,
		"metrics_addr", cfg.MetricsAddr,
	)

	collector := metrics.NewCollector(version, cfg.Mode)

	sup, err := supervisor.New(cfg, logger, collector)
	if err != nil {
		logger.Error("supervisor_construction_failed", "error", err)
		return 1
	}
	// Last-resort cleanup, independent of the signal path below.
	defer sup.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PrintCmd {
		return printWorkerCommands(ctx, cfg, sup)
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)
	if err := metricsServer.Start(); err != nil {
		logger.Error("metrics_server_start_failed", "error", err)
		return 1
	}

	if err := sup.StartAll(ctx); err != nil {
		// A GUI host would keep its window open in this situation;
		// the CLI harness has nothing left to serve, so it exits
		// after logging.
		logger.Error("backend_start_failed", "error", err)
		shutdownMetrics(metricsServer, logger)
		return 1
	}

	live, total := sup.Liveness()
	logger.Info("supervisor_ready", "live", live, "total", total)

	<-ctx.Done()
	logger.Info("shutdown_signal_received")

	sup.StopAll()
	shutdownMetrics(metricsServer, logger)

	fmt.Print(sup.Summary().Format())
	return 0
}

// printWorkerCommands resolves the dependency manager and prints the exact
// invocation each worker would be spawned with.
func printWorkerCommands(ctx context.Context, cfg *config.Config, sup *supervisor.Supervisor) int {
	uv, err := toolchain.FindDependencyManager(ctx, cfg.ProbeTimeout, cfg.UVPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	launcher := process.NewLauncher(process.LauncherConfig{
		UV:       uv,
		Location: sup.Location(),
	})
	for _, w := range process.Workers {
		line, err := launcher.CommandLine(w)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("%-16s %s\n", w.String()+":", line)
	}
	return 0
}

func shutdownMetrics(server *metrics.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}
