// Package metrics records probe execution outcomes per integration: a
// bounded history of recent executions, per-probe counters and latency
// extremes, error and vulnerability-type histograms, and a health
// classification over the most recent executions.
//
// Counters are mirrored to OpenTelemetry instruments so deployments with a
// metrics pipeline get the same numbers without scraping snapshots.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zero-day-ai/scanner/types"
)

const (
	// DefaultHistorySize bounds the retained execution records.
	DefaultHistorySize = 1000

	// DefaultHealthWindow is how many recent executions the health
	// classification considers.
	DefaultHealthWindow = 100

	healthyThreshold  = 0.95
	degradedThreshold = 0.80
)

const meterName = "github.com/zero-day-ai/scanner/metrics"

// Execution is one recorded probe run.
type Execution struct {
	// Probe is the probe name.
	Probe string `json:"probe"`

	// Status is completed, failed, or timeout.
	Status string `json:"status"`

	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`

	// Vulnerabilities is the number of medium-or-worse findings.
	Vulnerabilities int `json:"vulnerabilities"`

	// VulnerabilityTypes are the finding type names.
	VulnerabilityTypes []string `json:"vulnerability_types,omitempty"`

	// Error is the failure message for failed and timeout runs.
	Error string `json:"error,omitempty"`

	// At is when the execution finished.
	At time.Time `json:"at"`
}

// ProbeStats aggregates the executions of one probe.
type ProbeStats struct {
	Total           int     `json:"total"`
	Success         int     `json:"success"`
	Failed          int     `json:"failed"`
	Timeout         int     `json:"timeout"`
	Vulnerabilities int     `json:"vulnerabilities_found"`
	TotalSeconds    float64 `json:"total_time"`
	MinSeconds      float64 `json:"min_time"`
	MaxSeconds      float64 `json:"max_time"`
}

// AvgSeconds returns the mean execution time.
func (s ProbeStats) AvgSeconds() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.TotalSeconds / float64(s.Total)
}

// Snapshot is a point-in-time copy of a recorder's aggregates.
type Snapshot struct {
	TotalExecutions      int                   `json:"total_executions"`
	Probes               map[string]ProbeStats `json:"probes"`
	ErrorCounts          map[string]int        `json:"error_counts"`
	VulnerabilityCounts  map[string]int        `json:"vulnerability_counts"`
	RecentSuccessRate    float64               `json:"recent_success_rate"`
	RecentExecutionCount int                   `json:"recent_execution_count"`
}

// Recorder collects execution metrics for one integration. Safe for
// concurrent use.
type Recorder struct {
	mu          sync.Mutex
	scanner     string
	historySize int
	window      int

	history    []Execution // ring, oldest first once full
	start      int
	probes     map[string]*ProbeStats
	errors     map[string]int
	vulnCounts map[string]int
	total      int

	executions metric.Int64Counter
	duration   metric.Float64Histogram
	vulns      metric.Int64Counter
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithHistorySize bounds the retained execution records.
func WithHistorySize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.historySize = n
		}
	}
}

// WithHealthWindow sets how many recent executions health considers.
func WithHealthWindow(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.window = n
		}
	}
}

// WithMeterProvider overrides the OpenTelemetry meter provider, for tests.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.initInstruments(mp)
	}
}

// New creates a recorder for the named scanner integration.
func New(scanner string, opts ...Option) *Recorder {
	r := &Recorder{
		scanner:     scanner,
		historySize: DefaultHistorySize,
		window:      DefaultHealthWindow,
		probes:      make(map[string]*ProbeStats),
		errors:      make(map[string]int),
		vulnCounts:  make(map[string]int),
	}
	r.initInstruments(otel.GetMeterProvider())
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) initInstruments(mp metric.MeterProvider) {
	meter := mp.Meter(meterName)
	r.executions, _ = meter.Int64Counter("scanner.probe.executions",
		metric.WithDescription("Probe executions by status"))
	r.duration, _ = meter.Float64Histogram("scanner.probe.duration",
		metric.WithDescription("Probe execution time"),
		metric.WithUnit("s"))
	r.vulns, _ = meter.Int64Counter("scanner.probe.vulnerabilities",
		metric.WithDescription("Vulnerabilities found by probes"))
}

// Record adds one execution to the history and aggregates.
func (r *Recorder) Record(ctx context.Context, exec Execution) {
	if exec.At.IsZero() {
		exec.At = time.Now().UTC()
	}

	r.mu.Lock()
	r.appendLocked(exec)

	stats := r.probes[exec.Probe]
	if stats == nil {
		stats = &ProbeStats{}
		r.probes[exec.Probe] = stats
	}
	secs := exec.Duration.Seconds()
	stats.Total++
	stats.TotalSeconds += secs
	if stats.Total == 1 || secs < stats.MinSeconds {
		stats.MinSeconds = secs
	}
	if secs > stats.MaxSeconds {
		stats.MaxSeconds = secs
	}
	switch exec.Status {
	case types.ProbeStatusCompleted:
		stats.Success++
	case types.ProbeStatusTimeout:
		stats.Timeout++
	default:
		stats.Failed++
	}
	stats.Vulnerabilities += exec.Vulnerabilities

	if exec.Error != "" {
		r.errors[exec.Error]++
	}
	for _, vt := range exec.VulnerabilityTypes {
		r.vulnCounts[vt]++
	}
	r.total++
	r.mu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("scanner", r.scanner),
		attribute.String("probe", exec.Probe),
		attribute.String("status", exec.Status),
	)
	r.executions.Add(ctx, 1, attrs)
	r.duration.Record(ctx, seconds(exec.Duration), attrs)
	if exec.Vulnerabilities > 0 {
		r.vulns.Add(ctx, int64(exec.Vulnerabilities), metric.WithAttributes(
			attribute.String("scanner", r.scanner),
			attribute.String("probe", exec.Probe),
		))
	}
}

func seconds(d time.Duration) float64 { return d.Seconds() }

func (r *Recorder) appendLocked(exec Execution) {
	if len(r.history) < r.historySize {
		r.history = append(r.history, exec)
		return
	}
	r.history[r.start] = exec
	r.start = (r.start + 1) % r.historySize
}

// recentLocked returns up to n most recent executions, newest last.
func (r *Recorder) recentLocked(n int) []Execution {
	size := len(r.history)
	if n > size {
		n = size
	}
	out := make([]Execution, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, r.history[(r.start+i)%size])
	}
	return out
}

// Snapshot returns a copy of the current aggregates.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		TotalExecutions:     r.total,
		Probes:              make(map[string]ProbeStats, len(r.probes)),
		ErrorCounts:         make(map[string]int, len(r.errors)),
		VulnerabilityCounts: make(map[string]int, len(r.vulnCounts)),
	}
	for name, stats := range r.probes {
		snap.Probes[name] = *stats
	}
	for msg, n := range r.errors {
		snap.ErrorCounts[msg] = n
	}
	for vt, n := range r.vulnCounts {
		snap.VulnerabilityCounts[vt] = n
	}
	snap.RecentSuccessRate, snap.RecentExecutionCount = r.recentRateLocked()
	return snap
}

func (r *Recorder) recentRateLocked() (float64, int) {
	recent := r.recentLocked(r.window)
	if len(recent) == 0 {
		return 1.0, 0
	}
	ok := 0
	for _, exec := range recent {
		if exec.Status == types.ProbeStatusCompleted {
			ok++
		}
	}
	return float64(ok) / float64(len(recent)), len(recent)
}

// Health classifies the integration from its recent success rate:
// healthy at 95% or better, degraded at 80%, unhealthy below. An empty
// history is healthy.
func (r *Recorder) Health() types.HealthStatus {
	r.mu.Lock()
	rate, count := r.recentRateLocked()
	r.mu.Unlock()

	details := map[string]any{
		"success_rate":      rate,
		"recent_executions": count,
	}
	switch {
	case rate >= healthyThreshold:
		return types.HealthStatus{Status: types.HealthHealthy, Scanner: r.scanner, Details: details}
	case rate >= degradedThreshold:
		return types.Degraded(r.scanner, "elevated probe failure rate", details)
	default:
		return types.Unhealthy(r.scanner, "probe failure rate above tolerance", details)
	}
}

// Reset clears all history and aggregates.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.start = 0
	r.probes = make(map[string]*ProbeStats)
	r.errors = make(map[string]int)
	r.vulnCounts = make(map[string]int)
	r.total = 0
}
