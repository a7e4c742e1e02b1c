package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/kibanahunt/internal/config"
	"github.com/anstrom/kibanahunt/internal/logging"
	"github.com/anstrom/kibanahunt/internal/results"
	"github.com/anstrom/kibanahunt/internal/scanning"
)

const (
	formatTable = "table"
	formatJSON  = "json"

	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"

	timeLayout = "2006-01-02 15:04:05"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// reporter renders the banner and final summary of a scan.
type reporter struct {
	out    io.Writer
	format string

	title *color.Color
	good  *color.Color
	warn  *color.Color
	dim   *color.Color
}

func newReporter(out io.Writer, cfg config.OutputConfig) *reporter {
	r := &reporter{
		out:    out,
		format: cfg.Format,
		title:  color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen, color.Bold),
		warn:   color.New(color.FgYellow),
		dim:    color.New(color.Faint),
	}

	enable := false
	switch cfg.Color {
	case colorAlways:
		enable = true
	case colorAuto:
		enable = isTerminal(out) && os.Getenv("NO_COLOR") == ""
	}
	for _, c := range []*color.Color{r.title, r.good, r.warn, r.dim} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Banner prints the scan header. JSON output has no banner.
func (r *reporter) Banner(scanID string, plan *scanning.Plan, workers int, start time.Time) {
	if r.format == formatJSON {
		return
	}

	r.title.Fprintln(r.out, "kibanahunt "+version)
	fmt.Fprintf(r.out, "Scan %s started %s\n", scanID, start.Format(timeLayout))
	fmt.Fprintf(r.out, "Ranges:  %s\n", strings.Join(plan.RangeStrings(), ", "))
	fmt.Fprintf(r.out, "Ports:   %s\n", joinPorts(plan.Ports))
	fmt.Fprintf(r.out, "Hosts:   %d across %d workers\n", plan.TotalHosts, workers)
	for _, o := range plan.Overlaps {
		r.warn.Fprintf(r.out, "Overlap: %s\n", o)
	}
	fmt.Fprintln(r.out)
}

// Summary prints the final report in the configured format.
func (r *reporter) Summary(s *results.Summary) error {
	if r.format == formatJSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	if len(s.Matches) > 0 {
		table := tablewriter.NewWriter(r.out)
		table.Header("URL", "Address", "Port", "Signature", "Hostname", "Confirmed")
		for i := range s.Matches {
			m := &s.Matches[i]
			hostname := m.Hostname
			if hostname == "" {
				hostname = "-"
			}
			_ = table.Append([]string{
				m.URL,
				m.Address.String(),
				strconv.FormatUint(uint64(m.Port), 10),
				m.Signature,
				hostname,
				m.ConfirmedAt.Format(timeLayout),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(r.out)
	}

	status := r.good.Sprint("completed")
	if s.Interrupted {
		status = r.warn.Sprint("interrupted")
	}
	fmt.Fprintf(r.out, "Scan %s %s in %s\n", s.ScanID, status, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.out, "Hosts scanned:  %d/%d\n", s.TotalHostsScanned, s.HostsExpected)
	if s.HostsWithErrors > 0 {
		r.warn.Fprintf(r.out, "Hosts with errors: %d\n", s.HostsWithErrors)
	}
	found := fmt.Sprintf("Services found: %d", s.TotalServicesFound)
	if s.TotalServicesFound > 0 {
		r.good.Fprintln(r.out, found)
	} else {
		r.dim.Fprintln(r.out, found)
	}
	return nil
}

func joinPorts(ports []uint16) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.FormatUint(uint64(p), 10)
	}
	return strings.Join(parts, ",")
}

// progress renders aggregator events while a scan runs. On a terminal it
// rewrites a single status line; otherwise it logs at a fixed interval.
type progress struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	interval time.Duration
	last     time.Time
	now      func() time.Time
	logger   *logging.Logger
	drawn    bool
}

func newProgress(out io.Writer, logger *logging.Logger) *progress {
	p := &progress{
		out:    out,
		tty:    isTerminal(out),
		now:    time.Now,
		logger: logger,
	}
	if p.tty {
		p.interval = 100 * time.Millisecond
	} else {
		p.interval = 10 * time.Second
	}
	return p
}

// Observe is installed as the engine observer.
func (p *progress) Observe(ev results.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if ev.Kind == results.EventServiceMatch && p.tty {
		p.clearLine()
		fmt.Fprintf(p.out, "found %s\n", ev.Match.URL)
	} else if now.Sub(p.last) < p.interval && ev.HostsScanned != ev.HostsExpected {
		return
	}
	p.last = now

	if p.tty {
		fmt.Fprintf(p.out, "\r%s", progressLine(ev))
		p.drawn = true
		return
	}
	p.logger.Info("Scan progress",
		"hosts_scanned", ev.HostsScanned,
		"hosts_expected", ev.HostsExpected,
		"services_found", ev.ServicesFound)
}

// Done ends the status line so the summary starts on a fresh line.
func (p *progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func (p *progress) clearLine() {
	if p.drawn {
		fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}
}

func progressLine(ev results.Event) string {
	pct := 100.0
	if ev.HostsExpected > 0 {
		pct = float64(ev.HostsScanned) / float64(ev.HostsExpected) * 100
	}
	return fmt.Sprintf("%d/%d hosts (%.1f%%), %d services found",
		ev.HostsScanned, ev.HostsExpected, pct, ev.ServicesFound)
}
