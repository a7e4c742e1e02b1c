// Package metrics provides Prometheus-based metrics collection for kibanahunt.
// Collectors cover host throughput, per-stage probe outcomes, confirmed
// services and worker occupancy, and can be exposed over HTTP for long scans.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all kibanahunt metrics
	namespace = "kibanahunt"

	// Subsystems
	subsystemScan    = "scan"
	subsystemProbe   = "probe"
	subsystemWorkers = "workers"
)

// Stage names used as label values.
const (
	StageTCP  = "tcp"
	StageHTTP = "http"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	hostsScanned  *prometheus.CounterVec
	hostsExpected prometheus.Gauge
	matchesTotal  *prometheus.CounterVec

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Worker metrics
	activeWorkers prometheus.Gauge
	workerFaults  prometheus.Counter

	startTime time.Time
	registry  *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
// registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initWorkerMetrics()

	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initScanMetrics initializes scan-level metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scans by final status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of complete scans in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 3600, 14400, 86400},
		},
	)

	pm.hostsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "hosts_total",
			Help:      "Total number of hosts processed by outcome",
		},
		[]string{"host_status"},
	)

	pm.hostsExpected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "hosts_expected",
			Help:      "Number of host addresses enumerated for the current scan",
		},
	)

	pm.matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "matches_total",
			Help:      "Total number of confirmed services by port",
		},
		[]string{"port"},
	)
}

// initProbeMetrics initializes per-stage probe metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of probes by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of individual probes in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"stage"},
	)
}

// initWorkerMetrics initializes worker pool metrics
func (pm *PrometheusMetrics) initWorkerMetrics() {
	pm.activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "active",
			Help:      "Number of workers currently processing an address",
		},
	)

	pm.workerFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "faults_total",
			Help:      "Total number of addresses whose processing failed unexpectedly",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(pm.scansTotal)
	pm.registry.MustRegister(pm.scanDuration)
	pm.registry.MustRegister(pm.hostsScanned)
	pm.registry.MustRegister(pm.hostsExpected)
	pm.registry.MustRegister(pm.matchesTotal)

	pm.registry.MustRegister(pm.probesTotal)
	pm.registry.MustRegister(pm.probeDuration)

	pm.registry.MustRegister(pm.activeWorkers)
	pm.registry.MustRegister(pm.workerFaults)
}

// GetRegistry returns the Prometheus registry for HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Handler returns an HTTP handler exposing the registry in the Prometheus text format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// IncrementScansTotal increments the total scan counter
func (pm *PrometheusMetrics) IncrementScansTotal(status string) {
	pm.scansTotal.WithLabelValues(status).Inc()
}

// RecordScanDuration records a scan duration
func (pm *PrometheusMetrics) RecordScanDuration(duration time.Duration) {
	pm.scanDuration.Observe(duration.Seconds())
}

// IncrementHostsScanned increments hosts scanned counter
func (pm *PrometheusMetrics) IncrementHostsScanned(status string) {
	pm.hostsScanned.WithLabelValues(status).Inc()
}

// SetHostsExpected sets the number of hosts the scan will process
func (pm *PrometheusMetrics) SetHostsExpected(count uint64) {
	pm.hostsExpected.Set(float64(count))
}

// IncrementMatches increments the confirmed services counter
func (pm *PrometheusMetrics) IncrementMatches(port string) {
	pm.matchesTotal.WithLabelValues(port).Inc()
}

// RecordProbe records the outcome and duration of one probe stage
func (pm *PrometheusMetrics) RecordProbe(stage, outcome string, duration time.Duration) {
	pm.probesTotal.WithLabelValues(stage, outcome).Inc()
	pm.probeDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddActiveWorkers adjusts the active worker gauge by delta
func (pm *PrometheusMetrics) AddActiveWorkers(delta int) {
	pm.activeWorkers.Add(float64(delta))
}

// IncrementWorkerFaults increments the worker fault counter
func (pm *PrometheusMetrics) IncrementWorkerFaults() {
	pm.workerFaults.Inc()
}

// GetUptime returns the time since the metrics instance was created
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// Global instance for easy access
var globalMetrics *PrometheusMetrics
var metricsOnce sync.Once

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
