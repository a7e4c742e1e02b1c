package probe

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/anstrom/kibanahunt/internal/errors"
)

// DefaultTCPTimeout bounds a single connection attempt.
const DefaultTCPTimeout = 2 * time.Second

// TCPProber performs a plain TCP handshake and closes the socket immediately.
type TCPProber struct {
	timeout time.Duration
	dialer  *net.Dialer
}

// NewTCPProber creates a prober. A non-positive timeout selects DefaultTCPTimeout.
func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultTCPTimeout
	}
	return &TCPProber{
		timeout: timeout,
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: -1,
		},
	}
}

// Timeout returns the connection timeout in use.
func (p *TCPProber) Timeout() time.Duration {
	return p.timeout
}

// Probe attempts one connection to addr:port. No retry is made.
func (p *TCPProber) Probe(ctx context.Context, addr netip.Addr, port uint16) Result {
	res := Result{Address: addr, Port: port}

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", hostPort(addr, port))
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = errors.WrapProbeError(errors.ClassifyNetworkError(err), StageTCP,
			"connection failed", addr.String(), port, err)
		return res
	}
	_ = conn.Close()

	res.Reachable = true
	return res
}
