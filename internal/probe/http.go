package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/anstrom/kibanahunt/internal/errors"
)

// Validator defaults.
const (
	DefaultHTTPTimeout  = 5 * time.Second
	DefaultMaxBodyBytes = 4 << 20
	DefaultUserAgent    = "kibanahunt"
)

// HTTPConfig configures an HTTPValidator.
type HTTPConfig struct {
	Timeout      time.Duration
	Signatures   []string
	MaxBodyBytes int64
	UserAgent    string
}

// HTTPValidator issues one GET per call and matches the response body
// against the configured signatures.
type HTTPValidator struct {
	config     HTTPConfig
	signatures [][]byte
	client     *http.Client
}

// NewHTTPValidator creates a validator. Zero values in cfg select the defaults.
// Every request uses a fresh connection.
func NewHTTPValidator(cfg HTTPConfig) *HTTPValidator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	sigs := make([][]byte, 0, len(cfg.Signatures))
	for _, s := range cfg.Signatures {
		if s != "" {
			sigs = append(sigs, []byte(s))
		}
	}

	transport := &http.Transport{
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	return &HTTPValidator{
		config:     cfg,
		signatures: sigs,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Validate requests http://addr:port and reports a match when the final
// response is 200 and its body contains a signature. Signatures are tried in
// configured order and compared case-sensitively.
func (v *HTTPValidator) Validate(ctx context.Context, addr netip.Addr, port uint16) Validation {
	url := ServiceURL(addr, port)
	val := Validation{URL: url}
	target := addr.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		val.Err = errors.WrapProbeError(errors.CodeInternal, StageHTTP,
			"failed to build request", target, port, err)
		return val
	}
	req.Header.Set("User-Agent", v.config.UserAgent)

	start := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		val.Latency = time.Since(start)
		code := errors.ClassifyNetworkError(err)
		if code != errors.CodeTimeout && code != errors.CodeCanceled {
			code = errors.CodeServiceUnavailable
		}
		val.Err = errors.WrapProbeError(code, StageHTTP, "request failed", target, port, err)
		return val
	}
	defer func() { _ = resp.Body.Close() }()

	val.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		val.Latency = time.Since(start)
		val.Err = errors.NewProbeError(errors.CodeHTTPStatus, StageHTTP,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), target, port)
		return val
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, v.config.MaxBodyBytes))
	val.Latency = time.Since(start)
	if err != nil {
		code := errors.ClassifyNetworkError(err)
		if code != errors.CodeTimeout && code != errors.CodeCanceled {
			code = errors.CodeMalformedResponse
		}
		val.Err = errors.WrapProbeError(code, StageHTTP, "failed to read body", target, port, err)
		return val
	}

	for _, sig := range v.signatures {
		if bytes.Contains(body, sig) {
			val.Matched = true
			val.Signature = string(sig)
			return val
		}
	}

	val.Err = errors.NewProbeError(errors.CodeSignatureMissing, StageHTTP,
		"no signature in response body", target, port)
	return val
}
