// Package transport sends assembled requests to the platform and returns the
// raw response. It never decodes response bodies.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/RowanDark/ncmsign/internal/request"
)

const (
	// DefaultTimeout bounds a single round trip including the body read.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is kept.
	DefaultMaxBodyBytes int64 = 32 << 20
)

// ErrBodyTooLarge is returned when a response exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Response is the undecoded upstream reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client executes TransportRequests.
type Client struct {
	http    *http.Client
	timeout time.Duration
	maxBody int64
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout     time.Duration
	maxBody     int64
	fingerprint bool
	base        http.RoundTripper
}

// WithTimeout overrides DefaultTimeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithBrowserFingerprint dials TLS with a Chrome ClientHello. Connections made
// this way speak HTTP/1.1.
func WithBrowserFingerprint(enabled bool) Option {
	return func(c *clientConfig) { c.fingerprint = enabled }
}

// WithRoundTripper replaces the built transport, mainly for tests.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.base = rt }
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{timeout: DefaultTimeout, maxBody: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	rt := cfg.base
	if rt == nil {
		built, err := buildTransport(cfg)
		if err != nil {
			return nil, err
		}
		rt = built
	}
	return &Client{
		http: &http.Client{
			Transport: rt,
			// Redirects go back to the caller unfollowed.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		timeout: cfg.timeout,
		maxBody: cfg.maxBody,
	}, nil
}

func buildTransport(cfg clientConfig) (http.RoundTripper, error) {
	base := http.DefaultTransport
	transport, ok := base.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
	} else {
		transport = transport.Clone()
	}
	transport.Proxy = http.ProxyFromEnvironment
	dialer := &net.Dialer{Timeout: cfg.timeout, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext
	if cfg.fingerprint {
		transport.DialTLSContext = fingerprintDialer(dialer)
		transport.ForceAttemptHTTP2 = false
		return transport, nil
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return transport, nil
}

// Do sends req and reads the whole response body.
func (c *Client) Do(ctx context.Context, req *request.TransportRequest) (*Response, error) {
	if req == nil {
		return nil, request.Missing("request")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, strings.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", request.ErrInvalidURL, err)
	}
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Name, h.Value)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBody)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
