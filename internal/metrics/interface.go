// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

//go:generate mockgen -source=interface.go -destination=mocks/mock_recorder.go -package=mocks

// Recorder defines the metrics the scanning components emit.
// This interface allows components to be tested without a Prometheus registry.
type Recorder interface {
	// IncrementScansTotal counts a finished scan by status.
	IncrementScansTotal(status string)

	// RecordScanDuration records the wall time of a finished scan.
	RecordScanDuration(duration time.Duration)

	// IncrementHostsScanned counts a processed host by outcome.
	IncrementHostsScanned(status string)

	// SetHostsExpected records the enumerated host count.
	SetHostsExpected(count uint64)

	// IncrementMatches counts a confirmed service on a port.
	IncrementMatches(port string)

	// RecordProbe records one probe stage outcome and its duration.
	RecordProbe(stage, outcome string, duration time.Duration)

	// AddActiveWorkers adjusts the number of busy workers.
	AddActiveWorkers(delta int)

	// IncrementWorkerFaults counts an address whose processing failed.
	IncrementWorkerFaults()
}

// Ensure that PrometheusMetrics implements Recorder interface.
var _ Recorder = (*PrometheusMetrics)(nil)
