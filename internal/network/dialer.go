// File: internal/network/dialer.go
package network

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DialerConfig holds configuration for the TCP dialer under the HTTP client.
type DialerConfig struct {
	Timeout   time.Duration
	KeepAlive time.Duration
	// NoDelay controls TCP_NODELAY. Wire commands are small and latency bound.
	NoDelay  bool
	Resolver *net.Resolver
}

// NewDialerConfig returns the dialer defaults for a local automation endpoint.
func NewDialerConfig() *DialerConfig {
	return &DialerConfig{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveInterval,
		NoDelay:   true,
		Resolver:  net.DefaultResolver,
	}
}

// Clone returns a copy of the config. A nil config clones the defaults.
func (c *DialerConfig) Clone() *DialerConfig {
	if c == nil {
		return NewDialerConfig()
	}
	clone := *c
	return &clone
}

// DialTCPContext opens a TCP connection with the configured options applied.
// Suitable for http.Transport.DialContext.
func DialTCPContext(ctx context.Context, network, address string, config *DialerConfig) (net.Conn, error) {
	if config == nil {
		config = NewDialerConfig()
	}
	dialer := &net.Dialer{
		Timeout:       config.Timeout,
		KeepAlive:     config.KeepAlive,
		FallbackDelay: 300 * time.Millisecond,
		Resolver:      config.Resolver,
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("tcp dial failed: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := configureTCP(tcpConn, config); err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func configureTCP(conn *net.TCPConn, config *DialerConfig) error {
	// Keep-alive is best effort; not every platform supports tuning it.
	if config.KeepAlive > 0 {
		_ = conn.SetKeepAlive(true)
		_ = conn.SetKeepAlivePeriod(config.KeepAlive)
	}
	if err := conn.SetNoDelay(config.NoDelay); err != nil {
		return fmt.Errorf("failed to set TCP NoDelay: %w", err)
	}
	return nil
}
