package resolve

import (
	"context"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs an in-process DNS server answering PTR queries from records.
func startServer(t *testing.T, records map[string]string) (string, *atomic.Int64) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	var queries atomic.Int64
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		queries.Add(1)
		m := new(dns.Msg)
		m.SetReply(req)

		q := req.Question[0]
		name, ok := records[q.Name]
		if !ok || q.Qtype != dns.TypePTR {
			m.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(m)
			return
		}
		m.Answer = append(m.Answer, &dns.PTR{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
			Ptr: name,
		})
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("DNS server did not start")
	}
	return pc.LocalAddr().String(), &queries
}

func TestLookupPTR(t *testing.T) {
	server, queries := startServer(t, map[string]string{
		"5.0.0.10.in-addr.arpa.": "kibana.internal.example.",
	})

	r, err := New(server, time.Second)
	require.NoError(t, err)
	assert.Equal(t, server, r.Server())

	name, err := r.LookupPTR(context.Background(), netip.MustParseAddr("10.0.0.5"))
	require.NoError(t, err)
	assert.Equal(t, "kibana.internal.example", name)

	name, err = r.LookupPTR(context.Background(), netip.MustParseAddr("10.0.0.5"))
	require.NoError(t, err)
	assert.Equal(t, "kibana.internal.example", name)
	assert.Equal(t, int64(1), queries.Load(), "second lookup should be cached")
}

func TestLookupPTR_NotFound(t *testing.T) {
	server, _ := startServer(t, nil)

	r, err := New(server, time.Second)
	require.NoError(t, err)

	_, err = r.LookupPTR(context.Background(), netip.MustParseAddr("10.0.0.6"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupPTR_IPv6(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8::1")
	rev, err := dns.ReverseAddr(addr.String())
	require.NoError(t, err)

	server, _ := startServer(t, map[string]string{rev: "es6.example."})

	r, err := New(server, time.Second)
	require.NoError(t, err)

	name, err := r.LookupPTR(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "es6.example", name)
}

func TestLookupPTR_Unreachable(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	server := pc.LocalAddr().String()
	defer pc.Close()

	r, err := New(server, 200*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = r.LookupPTR(context.Background(), netip.MustParseAddr("10.0.0.7"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestServerAddress(t *testing.T) {
	t.Run("host only gets port 53", func(t *testing.T) {
		r, err := New("192.0.2.53", 0)
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.53:53", r.Server())
	})

	t.Run("ipv6 host", func(t *testing.T) {
		r, err := New("2001:db8::53", 0)
		require.NoError(t, err)
		assert.Equal(t, "[2001:db8::53]:53", r.Server())
	})

	t.Run("resolv.conf fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "resolv.conf")
		require.NoError(t, os.WriteFile(path, []byte("nameserver 192.0.2.1\nnameserver 192.0.2.2\n"), 0o600))

		old := ResolvConfPath
		ResolvConfPath = path
		defer func() { ResolvConfPath = old }()

		r, err := New("", 0)
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.1:53", r.Server())
	})

	t.Run("missing resolv.conf", func(t *testing.T) {
		old := ResolvConfPath
		ResolvConfPath = filepath.Join(t.TempDir(), "missing")
		defer func() { ResolvConfPath = old }()

		_, err := New("", 0)
		assert.Error(t, err)
	})
}
