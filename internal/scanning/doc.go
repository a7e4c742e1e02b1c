// Package scanning runs kibanahunt scans.
//
// A scan takes a config.ScanConfig, turns it into a Plan and drives every
// host address of the plan through the same per-host pipeline: a TCP connect
// to each configured port, an HTTP GET to every port that accepted, and a
// signature check on the response body. Confirmed services are collected by a
// results.Aggregator and returned as a frozen results.Summary.
//
// # Overview
//
// The package is built around two types:
//   - Plan: the validated configuration with ranges and ports parsed, the
//     host total computed and overlapping ranges detected
//   - Engine: executes one scan over a plan with a fixed-size worker pool
//
// All configuration problems are reported by NewPlan, and therefore by
// Engine.Run, before the first address is enumerated. Once probing starts no
// error leaves Run: network failures become per-host outcomes that are
// logged, counted in metrics and folded into the summary.
//
// # Usage
//
//	cfg := config.DefaultScan()
//	cfg.Ranges = []string{"10.0.0.0/24"}
//
//	engine := scanning.New(cfg,
//		scanning.WithLogger(logging.Default()),
//		scanning.WithObserver(func(ev results.Event) {
//			fmt.Printf("%d/%d\n", ev.HostsScanned, ev.HostsExpected)
//		}))
//
//	summary, err := engine.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, url := range summary.URLs() {
//		fmt.Println(url)
//	}
//
// # Per-host pipeline
//
// Ports of one host are probed strictly in configured order; hosts are
// processed concurrently with no ordering guarantee. A port is validated only
// when its TCP probe succeeded. When name resolution is enabled the PTR
// record of a host is looked up once, on its first confirmed service.
//
// Overlapping ranges are not merged. Addresses they share are probed once per
// occurrence and a warning naming both ranges is logged at start.
//
// # Cancellation
//
// Cancelling the context passed to Run stops enumeration, lets in-flight
// probes abort and returns the partial summary with Interrupted set.
//
// # Collaborators
//
// The engine wires together:
//   - internal/targets: range parsing, host enumeration and overlap detection
//   - internal/probe: TCP prober and HTTP validator
//   - internal/workers: the bounded worker pool
//   - internal/results: the single-owner result aggregator
//   - internal/resolve: optional PTR enrichment
//   - internal/metrics: Prometheus counters and histograms
package scanning
