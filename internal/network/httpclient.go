// File: internal/network/httpclient.go
package network

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultResponseHeaderTimeout = 0
	DefaultRequestTimeout        = 60 * time.Second

	// A session talks to a single host and issues one command at a time in
	// the common case, so the pool stays small.
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 90 * time.Second
)

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	// RequestTimeout bounds a whole command. Async scripts and page loads can
	// legitimately run long, so keep it above the session's protocol timeouts.
	RequestTimeout        time.Duration
	ResponseHeaderTimeout time.Duration

	Dialer *DialerConfig

	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// ForceHTTP2 enables h2 negotiation for https endpoints. Plain http
	// servers keep speaking HTTP/1.1.
	ForceHTTP2 bool
	// Compression negotiates br, gzip and deflate and decodes responses.
	Compression bool

	ProxyURL *url.URL

	Logger *zap.Logger
}

// NewDefaultClientConfig returns a configuration tuned for a local server.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RequestTimeout:        DefaultRequestTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		Dialer:                NewDialerConfig(),
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		Logger:                zap.NewNop(),
	}
}

// NewHTTPTransport creates an http.Transport from config.
func NewHTTPTransport(config *ClientConfig) *http.Transport {
	if config == nil {
		config = NewDefaultClientConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialerCfg := config.Dialer.Clone()

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return DialTCPContext(ctx, network, addr, dialerCfg)
		},
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		// Decoding is done by CompressionMiddleware when enabled.
		DisableCompression: true,
		ForceAttemptHTTP2:  config.ForceHTTP2,
	}
	if config.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(config.ProxyURL)
	}

	if config.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	}
	return transport
}

// NewClient builds the http.Client a session sends its commands through.
// Redirects are never followed: a 303 from the session handshake carries the
// session id in its Location header.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = NewDefaultClientConfig()
	}

	var rt http.RoundTripper = NewHTTPTransport(config)
	if config.Compression {
		rt = NewCompressionMiddleware(rt)
	}

	return &http.Client{
		Transport: rt,
		Timeout:   config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
