package scanning

import (
	"context"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/anstrom/kibanahunt/internal/config"
	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/logging"
	"github.com/anstrom/kibanahunt/internal/metrics"
	"github.com/anstrom/kibanahunt/internal/probe"
	"github.com/anstrom/kibanahunt/internal/resolve"
	"github.com/anstrom/kibanahunt/internal/results"
	"github.com/anstrom/kibanahunt/internal/targets"
	"github.com/anstrom/kibanahunt/internal/workers"
)

// Host outcomes used as metric labels.
const (
	hostClean   = "clean"
	hostMatched = "matched"
	hostError   = "error"
)

// NameResolver looks up the PTR name of an address.
type NameResolver interface {
	LookupPTR(ctx context.Context, addr netip.Addr) (string, error)
}

// Option customises an Engine.
type Option func(*Engine)

// WithProber replaces the TCP prober.
func WithProber(p probe.Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// WithValidator replaces the HTTP validator.
func WithValidator(v probe.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithResolver sets the PTR resolver used when name resolution is enabled.
func WithResolver(r NameResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver receives progress events from the result aggregator.
func WithObserver(fn func(results.Event)) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithScanID overrides the generated scan ID.
func WithScanID(id string) Option {
	return func(e *Engine) { e.scanID = id }
}

// Engine runs one scan over the configured ranges and ports.
type Engine struct {
	cfg       config.ScanConfig
	scanID    string
	prober    probe.Prober
	validator probe.Validator
	resolver  NameResolver
	metrics   metrics.Recorder
	logger    *logging.Logger
	observer  func(results.Event)
}

// New creates an engine. Configuration is checked when Run is called.
func New(cfg config.ScanConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		scanID:  uuid.NewString(),
		metrics: metrics.GetGlobalMetrics(),
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewDiscard()
	}
	if e.metrics == nil {
		e.metrics = metrics.GetGlobalMetrics()
	}
	return e
}

// ScanID returns the identifier used in logs and the summary.
func (e *Engine) ScanID() string {
	return e.scanID
}

// Run validates the configuration, scans every enumerated address and returns
// the frozen summary. Only configuration problems produce an error; probe
// failures are absorbed. When ctx is cancelled the partial summary is
// returned with Interrupted set.
func (e *Engine) Run(ctx context.Context) (*results.Summary, error) {
	plan, err := NewPlan(e.cfg)
	if err != nil {
		return nil, err
	}

	logger := e.logger.WithScanID(e.scanID).WithComponent("scanner")
	for _, o := range plan.Overlaps {
		logger.WarnRanges("Overlapping ranges will be probed more than once",
			[]string{o.Earlier.String(), o.Later.String()})
	}

	e.setupProbes(logger)

	enum := targets.NewEnumerator(plan.Ranges)
	total := enum.Total()
	e.metrics.SetHostsExpected(total)

	logger.InfoScan("Starting scan", strings.Join(plan.RangeStrings(), ","),
		"ports", plan.Ports,
		"hosts", total,
		"workers", e.cfg.Workers)

	agg := results.NewAggregator(e.scanID,
		results.WithHostsExpected(total),
		results.WithObserver(e.observer),
		results.WithLogger(logger))

	pool := workers.New(
		workers.Config{Size: e.cfg.Workers, QueueSize: e.cfg.EffectiveQueueSize()},
		func(ctx context.Context, addr netip.Addr) error {
			status := hostClean
			if e.scanHost(ctx, logger, agg, plan.Ports, addr) > 0 {
				status = hostMatched
			}
			e.metrics.IncrementHostsScanned(status)
			return nil
		},
		workers.WithOnComplete(func(addr netip.Addr, err error) {
			if err != nil {
				e.metrics.IncrementHostsScanned(hostError)
			}
			agg.RecordHostScanned(addr, err)
		}),
		workers.WithMetrics(e.metrics),
		workers.WithLogger(logger))

	stats := pool.Run(ctx, enum.Stream(ctx, pool.QueueSize()))

	status := "completed"
	if ctx.Err() != nil && stats.Handled < total {
		status = "interrupted"
		agg.MarkInterrupted()
	}

	summary := agg.Close()
	e.metrics.IncrementScansTotal(status)
	e.metrics.RecordScanDuration(summary.Duration)

	logger.Info("Scan finished",
		"status", status,
		"hosts_scanned", summary.TotalHostsScanned,
		"services_found", summary.TotalServicesFound,
		"duration", summary.Duration)

	return &summary, nil
}

func (e *Engine) setupProbes(logger *logging.Logger) {
	if e.prober == nil {
		e.prober = probe.NewTCPProber(e.cfg.TCPTimeout)
	}
	if e.validator == nil {
		e.validator = probe.NewHTTPValidator(probe.HTTPConfig{
			Timeout:      e.cfg.HTTPTimeout,
			Signatures:   e.cfg.Signatures,
			MaxBodyBytes: e.cfg.MaxBodyBytes,
			UserAgent:    e.cfg.UserAgent,
		})
	}

	if !e.cfg.ResolveNames {
		e.resolver = nil
		return
	}
	if e.resolver == nil {
		r, err := resolve.New(e.cfg.DNSServer, e.cfg.TCPTimeout)
		if err != nil {
			logger.Warn("Name resolution disabled", "error", err)
			return
		}
		e.resolver = r
	}
}

// scanHost probes every port of addr in order and validates the reachable
// ones. It returns the number of confirmed services.
func (e *Engine) scanHost(ctx context.Context, logger *logging.Logger, agg *results.Aggregator,
	ports []uint16, addr netip.Addr) int {
	target := addr.String()
	matches := 0
	var hostname string
	resolved := false

	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}

		res := e.prober.Probe(ctx, addr, port)
		e.metrics.RecordProbe(probe.StageTCP, outcome(res.Reachable, "open", res.Err), res.Latency)
		if !res.Reachable {
			logger.DebugProbe("Port not reachable", target, port, "error", res.Err)
			continue
		}

		val := e.validator.Validate(ctx, addr, port)
		e.metrics.RecordProbe(probe.StageHTTP, outcome(val.Matched, "matched", val.Err), val.Latency)
		if !val.Matched {
			logger.DebugProbe("Service not confirmed", target, port,
				"status", val.StatusCode, "error", val.Err)
			continue
		}

		if e.resolver != nil && !resolved {
			resolved = true
			name, err := e.resolver.LookupPTR(ctx, addr)
			if err != nil {
				logger.DebugProbe("PTR lookup failed", target, port, "error", err)
			}
			hostname = name
		}

		agg.RecordServiceMatch(results.ServiceMatch{
			Address:   addr,
			Port:      port,
			URL:       val.URL,
			Signature: val.Signature,
			Hostname:  hostname,
		})
		e.metrics.IncrementMatches(strconv.FormatUint(uint64(port), 10))
		logger.InfoMatch(val.URL, "signature", val.Signature, "hostname", hostname)
		matches++
	}

	return matches
}

func outcome(ok bool, success string, err error) string {
	if ok {
		return success
	}
	return string(errors.GetCode(err))
}
