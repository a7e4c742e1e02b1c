// Package results collects the outcome of a scan. A single goroutine owns the
// counters and the list of confirmed services; workers submit to it over a
// channel and the frozen summary is handed to the presenter once the pool
// has drained.
package results

import (
	"net/netip"
	"time"
)

// ServiceMatch is a confirmed Kibana or Elastic endpoint.
type ServiceMatch struct {
	Address     netip.Addr `json:"address"`
	Port        uint16     `json:"port"`
	URL         string     `json:"url"`
	Signature   string     `json:"signature,omitempty"`
	Hostname    string     `json:"hostname,omitempty"`
	ConfirmedAt time.Time  `json:"confirmed_at"`
}

// Summary is the aggregate result of one scan run.
type Summary struct {
	ScanID             string         `json:"scan_id"`
	HostsExpected      uint64         `json:"hosts_expected"`
	TotalHostsScanned  uint64         `json:"total_hosts_scanned"`
	HostsWithErrors    uint64         `json:"hosts_with_errors"`
	TotalServicesFound uint64         `json:"total_services_found"`
	Matches            []ServiceMatch `json:"matches"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	Duration           time.Duration  `json:"duration"`
	Interrupted        bool           `json:"interrupted"`
}

// URLs returns the URL of every match in submission order.
func (s Summary) URLs() []string {
	urls := make([]string, len(s.Matches))
	for i, m := range s.Matches {
		urls[i] = m.URL
	}
	return urls
}

// Progress returns the fraction of expected hosts scanned, or zero when the
// expected count is unknown.
func (s Summary) Progress() float64 {
	if s.HostsExpected == 0 {
		return 0
	}
	return float64(s.TotalHostsScanned) / float64(s.HostsExpected)
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventHostScanned is emitted once per completed address.
	EventHostScanned EventKind = iota
	// EventServiceMatch is emitted once per confirmed service.
	EventServiceMatch
)

func (k EventKind) String() string {
	switch k {
	case EventHostScanned:
		return "host_scanned"
	case EventServiceMatch:
		return "service_match"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after the aggregator has applied it.
// The counters reflect the state including this event.
type Event struct {
	Kind          EventKind
	Address       netip.Addr
	Err           error
	Match         *ServiceMatch
	HostsScanned  uint64
	HostsExpected uint64
	ServicesFound uint64
}
