// Package resolve looks up reverse DNS names for confirmed services.
package resolve

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// DefaultTimeout bounds one PTR query.
const DefaultTimeout = 2 * time.Second

// ResolvConfPath is read when no server is configured.
var ResolvConfPath = "/etc/resolv.conf"

// ErrNotFound is returned when the server has no PTR record for an address.
var ErrNotFound = stderrors.New("no PTR record")

// Resolver sends PTR queries to a single DNS server and caches answers
// for the lifetime of a scan.
type Resolver struct {
	server string
	client *dns.Client

	mu    sync.Mutex
	cache map[netip.Addr]string
}

// New creates a resolver. server is host or host:port; when empty the first
// nameserver from ResolvConfPath is used.
func New(server string, timeout time.Duration) (*Resolver, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	addr, err := serverAddress(server)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		server: addr,
		client: &dns.Client{Net: "udp", Timeout: timeout},
		cache:  make(map[netip.Addr]string),
	}, nil
}

func serverAddress(server string) (string, error) {
	if server != "" {
		if _, _, err := net.SplitHostPort(server); err == nil {
			return server, nil
		}
		return net.JoinHostPort(strings.Trim(server, "[]"), "53"), nil
	}

	conf, err := dns.ClientConfigFromFile(ResolvConfPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", ResolvConfPath, err)
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("no nameserver configured in %s", ResolvConfPath)
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}

// Server returns the host:port queries are sent to.
func (r *Resolver) Server() string {
	return r.server
}

// LookupPTR returns the first PTR name for addr without its trailing dot.
func (r *Resolver) LookupPTR(ctx context.Context, addr netip.Addr) (string, error) {
	r.mu.Lock()
	name, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		if name == "" {
			return "", ErrNotFound
		}
		return name, nil
	}

	rev, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("failed to build reverse name for %s: %w", addr, err)
	}

	m := new(dns.Msg)
	m.SetQuestion(rev, dns.TypePTR)

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", fmt.Errorf("PTR query for %s failed: %w", addr, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		r.store(addr, "")
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("PTR query for %s returned %s", addr, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name := strings.TrimSuffix(ptr.Ptr, ".")
			r.store(addr, name)
			return name, nil
		}
	}

	r.store(addr, "")
	return "", ErrNotFound
}

func (r *Resolver) store(addr netip.Addr, name string) {
	r.mu.Lock()
	r.cache[addr] = name
	r.mu.Unlock()
}
