package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/kibanahunt/internal/errors"
)

func serverAddr(t *testing.T, srv *httptest.Server) (netip.Addr, uint16) {
	t.Helper()
	ap, err := netip.ParseAddrPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	return ap.Addr(), ap.Port()
}

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ap := netip.MustParseAddrPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	return ap.Port()
}

func TestServiceURL(t *testing.T) {
	tests := []struct {
		addr string
		port uint16
		want string
	}{
		{"192.168.1.10", 5601, "http://192.168.1.10:5601"},
		{"10.0.0.1", 9200, "http://10.0.0.1:9200"},
		{"::1", 9200, "http://[::1]:9200"},
		{"2001:db8::5", 5601, "http://[2001:db8::5]:5601"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceURL(netip.MustParseAddr(tt.addr), tt.port))
		})
	}
}

func TestTCPProber_OpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	ap := netip.MustParseAddrPort(ln.Addr().String())
	res := NewTCPProber(time.Second).Probe(context.Background(), ap.Addr(), ap.Port())

	assert.True(t, res.Reachable)
	assert.NoError(t, res.Err)
	assert.Equal(t, ap.Addr(), res.Address)
	assert.Equal(t, ap.Port(), res.Port)
}

func TestTCPProber_ClosedPort(t *testing.T) {
	port := closedPort(t)
	timeout := 500 * time.Millisecond
	addr := netip.MustParseAddr("127.0.0.1")

	start := time.Now()
	res := NewTCPProber(timeout).Probe(context.Background(), addr, port)
	elapsed := time.Since(start)

	assert.False(t, res.Reachable)
	require.Error(t, res.Err)
	assert.Equal(t, errors.CodePortClosed, errors.GetCode(res.Err))
	assert.Less(t, elapsed, timeout+250*time.Millisecond)

	var probeErr *errors.ProbeError
	require.ErrorAs(t, res.Err, &probeErr)
	assert.Equal(t, StageTCP, probeErr.Stage)
	assert.Equal(t, port, probeErr.Port)
}

func TestTCPProber_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewTCPProber(time.Second).Probe(ctx, netip.MustParseAddr("127.0.0.1"), closedPort(t))

	assert.False(t, res.Reachable)
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(res.Err))
}

func TestTCPProber_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTCPTimeout, NewTCPProber(0).Timeout())
	assert.Equal(t, time.Second, NewTCPProber(time.Second).Timeout())
}

func TestHTTPValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantMatch bool
		wantSig   string
		wantCode  errors.ErrorCode
	}{
		{
			name: "kibana page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html><title>Kibana</title></html>`)
			},
			wantMatch: true,
			wantSig:   "Kibana",
		},
		{
			name: "elastic banner",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tagline":"You Know, for Search","name":"Elasticsearch"}`)
			},
			wantMatch: true,
			wantSig:   "Elastic",
		},
		{
			name: "first configured signature wins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "Elastic Kibana")
			},
			wantMatch: true,
			wantSig:   "Kibana",
		},
		{
			name: "no signature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "hello world")
			},
			wantCode: errors.CodeSignatureMissing,
		},
		{
			name: "match is case sensitive",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "kibana elastic")
			},
			wantCode: errors.CodeSignatureMissing,
		},
		{
			name: "signature with non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, "Kibana server is not ready yet")
			},
			wantCode: errors.CodeHTTPStatus,
		},
		{
			name: "redirect followed to login page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/" {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				fmt.Fprint(w, "Kibana login")
			},
			wantMatch: true,
			wantSig:   "Kibana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			addr, port := serverAddr(t, srv)
			v := NewHTTPValidator(HTTPConfig{
				Timeout:    2 * time.Second,
				Signatures: []string{"Kibana", "Elastic"},
			})

			val := v.Validate(context.Background(), addr, port)
			assert.Equal(t, ServiceURL(addr, port), val.URL)
			assert.Equal(t, tt.wantMatch, val.Matched)
			if tt.wantMatch {
				assert.NoError(t, val.Err)
				assert.Equal(t, tt.wantSig, val.Signature)
				assert.Equal(t, http.StatusOK, val.StatusCode)
				return
			}
			require.Error(t, val.Err)
			assert.Equal(t, tt.wantCode, errors.GetCode(val.Err))
		})
	}
}

func TestHTTPValidator_SendsUserAgent(t *testing.T) {
	agents := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		fmt.Fprint(w, "Kibana")
	}))
	defer srv.Close()

	addr, port := serverAddr(t, srv)

	NewHTTPValidator(HTTPConfig{Signatures: []string{"Kibana"}}).Validate(context.Background(), addr, port)
	assert.Equal(t, DefaultUserAgent, <-agents)

	NewHTTPValidator(HTTPConfig{Signatures: []string{"Kibana"}, UserAgent: "audit/1.0"}).
		Validate(context.Background(), addr, port)
	assert.Equal(t, "audit/1.0", <-agents)
}

func TestHTTPValidator_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 1024)+"Kibana")
	}))
	defer srv.Close()

	addr, port := serverAddr(t, srv)

	small := NewHTTPValidator(HTTPConfig{Signatures: []string{"Kibana"}, MaxBodyBytes: 512})
	val := small.Validate(context.Background(), addr, port)
	assert.False(t, val.Matched)
	assert.Equal(t, errors.CodeSignatureMissing, errors.GetCode(val.Err))

	large := NewHTTPValidator(HTTPConfig{Signatures: []string{"Kibana"}, MaxBodyBytes: 4096})
	assert.True(t, large.Validate(context.Background(), addr, port).Matched)
}

func TestHTTPValidator_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	addr, port := serverAddr(t, srv)
	v := NewHTTPValidator(HTTPConfig{Timeout: 100 * time.Millisecond, Signatures: []string{"Kibana"}})

	start := time.Now()
	val := v.Validate(context.Background(), addr, port)

	assert.False(t, val.Matched)
	assert.Equal(t, errors.CodeTimeout, errors.GetCode(val.Err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPValidator_ConnectionRefused(t *testing.T) {
	v := NewHTTPValidator(HTTPConfig{Timeout: time.Second, Signatures: []string{"Kibana"}})
	val := v.Validate(context.Background(), netip.MustParseAddr("127.0.0.1"), closedPort(t))

	assert.False(t, val.Matched)
	assert.Equal(t, errors.CodeServiceUnavailable, errors.GetCode(val.Err))
}
