// Package stats aggregates per-process lifecycle statistics for the exit
// summary printed when the supervisor shuts down.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Recorder accumulates lifecycle events across the supervisor's lifetime.
// Safe for concurrent use.
type Recorder struct {
	mu           sync.Mutex
	uptimeDigest *tdigest.TDigest
	exitCodes    map[int]int
	launches     int
	launchFailed int
	terminations int
	startTime    time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		uptimeDigest: tdigest.NewWithCompression(100),
		exitCodes:    make(map[int]int),
		startTime:    time.Now(),
	}
}

// RecordLaunch registers one successful worker launch.
func (r *Recorder) RecordLaunch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches++
}

// RecordLaunchFailure registers one worker that failed to launch.
func (r *Recorder) RecordLaunchFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launchFailed++
}

// RecordExit registers one process exit with its final exit code and
// uptime.
func (r *Recorder) RecordExit(code int, uptime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminations++
	r.exitCodes[code]++
	r.uptimeDigest.Add(uptime.Seconds(), 1)
}

// Summary is a point-in-time snapshot of the recorded statistics.
type Summary struct {
	RunDuration  time.Duration
	Launches     int
	LaunchFailed int
	Terminations int
	ExitCodes    map[int]int
	UptimeP50    time.Duration
	UptimeP95    time.Duration
	UptimeP99    time.Duration
}

// Summary snapshots the recorder.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		RunDuration:  time.Since(r.startTime),
		Launches:     r.launches,
		LaunchFailed: r.launchFailed,
		Terminations: r.terminations,
		ExitCodes:    make(map[int]int, len(r.exitCodes)),
	}
	for code, count := range r.exitCodes {
		s.ExitCodes[code] = count
	}
	if r.terminations > 0 {
		s.UptimeP50 = quantile(r.uptimeDigest, 0.50)
		s.UptimeP95 = quantile(r.uptimeDigest, 0.95)
		s.UptimeP99 = quantile(r.uptimeDigest, 0.99)
	}
	return s
}

func quantile(d *tdigest.TDigest, q float64) time.Duration {
	return time.Duration(d.Quantile(q) * float64(time.Second))
}

// Format renders the summary for display at program exit.
func (s Summary) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("───────────────────────────────────────────────\n")
	b.WriteString("            agenthost exit summary\n")
	b.WriteString("───────────────────────────────────────────────\n")
	fmt.Fprintf(&b, "Run Duration:       %s\n", FormatDuration(s.RunDuration))
	fmt.Fprintf(&b, "Worker Launches:    %d\n", s.Launches)
	if s.LaunchFailed > 0 {
		fmt.Fprintf(&b, "Launch Failures:    %d\n", s.LaunchFailed)
	}
	fmt.Fprintf(&b, "Terminations:       %d\n", s.Terminations)

	if s.Terminations > 0 {
		b.WriteString("\nUptime Distribution:\n")
		fmt.Fprintf(&b, "  P50 (median):     %s\n", FormatDuration(s.UptimeP50))
		fmt.Fprintf(&b, "  P95:              %s\n", FormatDuration(s.UptimeP95))
		fmt.Fprintf(&b, "  P99:              %s\n", FormatDuration(s.UptimeP99))
	}

	if len(s.ExitCodes) > 0 {
		b.WriteString("\nExit Codes:\n")
		codes := make([]int, 0, len(s.ExitCodes))
		for code := range s.ExitCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "  %3d %-12s %d\n", code, ExitCodeLabel(code), s.ExitCodes[code])
		}
	}

	b.WriteString("───────────────────────────────────────────────\n")
	return b.String()
}

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// ExitCodeLabel returns a human-readable label for common exit codes.
func ExitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}
