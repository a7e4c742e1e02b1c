package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/kibanahunt/internal/config"
	"github.com/anstrom/kibanahunt/internal/logging"
	"github.com/anstrom/kibanahunt/internal/metrics"
	"github.com/anstrom/kibanahunt/internal/results"
	"github.com/anstrom/kibanahunt/internal/scanning"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 2 * time.Second
)

var (
	scanNoProgress  bool
	scanMetricsAddr string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan ranges for Kibana and Elasticsearch services",
	Long: `Scan every host address in the given ranges. Each configured port is
probed with a TCP connect; ports that accept are requested over HTTP and the
response body is searched for the configured signatures.

Flags override values from the config file and KIBANAHUNT_* environment
variables. The scan stops early on SIGINT or SIGTERM and still prints the
partial summary.`,
	Example: `  kibanahunt scan --range 10.0.0.0/24
  kibanahunt scan --range 192.168.1.0/24 --range 192.168.2.0/24 --ports 5601,9200-9201
  kibanahunt scan --range 10.0.0.0/16 --workers 500 --output json
  kibanahunt scan --range 2001:db8::/120 --resolve --dns-server 10.0.0.53`,
	PreRunE: bindScanFlags,
	RunE:    runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	d := config.Default()
	flags := scanCmd.Flags()
	addRangeFlag(flags)
	flags.String("ports", d.Scan.Ports, "Ports to probe, comma list with a-b ranges")
	flags.Int("workers", d.Scan.Workers, "Number of concurrent workers")
	flags.Int("queue-size", d.Scan.QueueSize, "Address queue capacity (0 = twice the workers)")
	flags.StringSlice("signature", d.Scan.Signatures, "Body substring that confirms a service (repeatable)")
	flags.Duration("tcp-timeout", d.Scan.TCPTimeout, "TCP connect timeout")
	flags.Duration("http-timeout", d.Scan.HTTPTimeout, "HTTP request timeout")
	flags.String("user-agent", d.Scan.UserAgent, "User-Agent header for validation requests")
	flags.Bool("resolve", d.Scan.ResolveNames, "Look up PTR names for confirmed services")
	flags.String("dns-server", d.Scan.DNSServer, "DNS server for PTR lookups (default from /etc/resolv.conf)")
	flags.StringP("output", "o", d.Output.Format, "Summary format (table, json)")
	flags.String("color", d.Output.Color, "Colour mode (auto, always, never)")
	flags.BoolVar(&scanNoProgress, "no-progress", false, "Disable the live progress display")
	flags.StringVar(&scanMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while scanning")
}

// addRangeFlag registers the repeatable --range flag.
func addRangeFlag(flags *pflag.FlagSet) {
	flags.StringSliceP("range", "r", nil, "Range to scan in CIDR notation (repeatable)")
}

// scanFlagKeys maps scan flags to configuration keys.
var scanFlagKeys = map[string]string{
	"range":        "scan.ranges",
	"ports":        "scan.ports",
	"workers":      "scan.workers",
	"queue-size":   "scan.queue_size",
	"signature":    "scan.signatures",
	"tcp-timeout":  "scan.tcp_timeout",
	"http-timeout": "scan.http_timeout",
	"user-agent":   "scan.user_agent",
	"resolve":      "scan.resolve_names",
	"dns-server":   "scan.dns_server",
	"output":       "output.format",
	"color":        "output.color",
}

// bindFlags binds a command's flags to viper keys. Binding happens when the
// command runs so commands sharing a key do not steal each other's flags.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

func bindScanFlags(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd.Flags(), scanFlagKeys); err != nil {
		return err
	}
	if cmd.Flags().Changed("no-progress") {
		viper.Set("output.progress", !scanNoProgress)
	}
	if cmd.Flags().Changed("metrics-addr") {
		viper.Set("metrics.enabled", true)
		viper.Set("metrics.listen_addr", scanMetricsAddr)
	}
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := executeScan(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if summary.Interrupted {
		return errInterrupted
	}
	return nil
}

// executeScan runs one scan with cfg and writes the report to out. Progress
// goes to status.
func executeScan(ctx context.Context, cfg *config.Config, out, status io.Writer) (*results.Summary, error) {
	logger := logging.Default()

	plan, err := scanning.NewPlan(cfg.Scan)
	if err != nil {
		return nil, err
	}

	m := metrics.GetGlobalMetrics()
	if cfg.Metrics.Enabled {
		_, shutdown, err := serveMetrics(cfg.Metrics.ListenAddr, m, logger)
		if err != nil {
			return nil, err
		}
		defer shutdown()
	}

	opts := []scanning.Option{
		scanning.WithLogger(logger),
		scanning.WithMetrics(m),
	}
	var prog *progress
	if cfg.Output.Progress {
		prog = newProgress(status, logger)
		opts = append(opts, scanning.WithObserver(prog.Observe))
	}

	engine := scanning.New(cfg.Scan, opts...)
	rep := newReporter(out, cfg.Output)
	rep.Banner(engine.ScanID(), plan, cfg.Scan.Workers, time.Now())

	summary, err := engine.Run(ctx)
	if prog != nil {
		prog.Done()
	}
	if err != nil {
		return nil, err
	}

	if err := rep.Summary(summary); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	return summary, nil
}

// serveMetrics exposes /metrics on addr until the returned function is called.
// It reports the bound address.
func serveMetrics(addr string, m *metrics.PrometheusMetrics, logger *logging.Logger) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", ln.Addr().String())

	return ln.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}, nil
}
