// Package metrics provides Prometheus metrics for agenthost.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	backendInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agenthost_info",
			Help: "Information about the supervisor (value always 1)",
		},
		[]string{"version", "mode"},
	)

	launchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agenthost_worker_launches_total",
			Help: "Total successful worker launches",
		},
	)

	launchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agenthost_worker_launch_failures_total",
			Help: "Total worker launches that failed before or at spawn",
		},
	)

	liveProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agenthost_live_processes",
			Help: "Tracked processes currently alive",
		},
	)

	terminationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agenthost_terminations_total",
			Help: "Total termination requests issued during shutdown",
		},
	)

	terminationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agenthost_termination_failures_total",
			Help: "Total termination requests that reported an error",
		},
	)

	dependencySyncSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agenthost_dependency_sync_duration_seconds",
			Help: "Wall time of the most recent dependency sync",
		},
	)
)

// Collector owns metric registration and exposes typed update methods so
// the supervisor never touches raw prometheus types.
type Collector struct{}

// NewCollector registers the supervisor metrics with the default registry.
func NewCollector(version, mode string) *Collector {
	return NewCollectorWithRegistry(version, mode, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry registers with a custom registry. Useful for
// testing.
func NewCollectorWithRegistry(version, mode string, registry prometheus.Registerer) *Collector {
	registry.MustRegister(
		backendInfo,
		launchesTotal,
		launchFailuresTotal,
		liveProcesses,
		terminationsTotal,
		terminationFailuresTotal,
		dependencySyncSeconds,
	)
	backendInfo.WithLabelValues(version, mode).Set(1)
	return &Collector{}
}

// WorkerLaunched records one successful spawn.
func (c *Collector) WorkerLaunched() {
	launchesTotal.Inc()
	liveProcesses.Inc()
}

// LaunchFailed records a worker that never made it into the registry.
func (c *Collector) LaunchFailed() {
	launchFailuresTotal.Inc()
}

// SetLive overwrites the live process gauge after a liveness sweep.
func (c *Collector) SetLive(n int) {
	liveProcesses.Set(float64(n))
}

// ProcessTerminated records one termination request during shutdown.
func (c *Collector) ProcessTerminated(failed bool) {
	terminationsTotal.Inc()
	if failed {
		terminationFailuresTotal.Inc()
	}
}

// DependencySyncDuration records how long the dependency sync took.
func (c *Collector) DependencySyncDuration(d time.Duration) {
	dependencySyncSeconds.Set(d.Seconds())
}
