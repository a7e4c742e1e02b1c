// Package probe implements the two network stages of a scan: a TCP connect
// check that a port accepts connections, and an HTTP request that confirms a
// Kibana or Elastic service answers on it. Failures are returned as values on
// the result types and never as panics.
package probe

import (
	"context"
	"net/netip"
	"time"
)

// Stage names used in errors and metrics.
const (
	StageTCP  = "tcp"
	StageHTTP = "http"
)

// Result is the outcome of one TCP probe.
type Result struct {
	Address   netip.Addr
	Port      uint16
	Reachable bool
	Latency   time.Duration
	// Err is nil when Reachable is true, otherwise a *errors.ProbeError.
	Err error
}

// Validation is the outcome of one HTTP validation.
type Validation struct {
	URL        string
	Matched    bool
	StatusCode int
	// Signature is the configured string found in the body when Matched is true.
	Signature string
	Latency   time.Duration
	Err       error
}

// Prober checks whether a TCP port accepts connections.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr, port uint16) Result
}

// Validator confirms that a reachable port serves a recognised service.
type Validator interface {
	Validate(ctx context.Context, addr netip.Addr, port uint16) Validation
}

// ServiceURL returns http://{address}:{port}, bracketing IPv6 literals.
func ServiceURL(addr netip.Addr, port uint16) string {
	return "http://" + netip.AddrPortFrom(addr, port).String()
}

func hostPort(addr netip.Addr, port uint16) string {
	return netip.AddrPortFrom(addr, port).String()
}
