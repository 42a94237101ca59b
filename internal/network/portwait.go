// File: internal/network/portwait.go
package network

import (
	"context"
	"time"

	"github.com/xkilldash9x/scalpel-wd/pkg/wait"
)

// WaitForPort polls until a TCP listener accepts connections on address or
// timeout elapses. Used before talking to a server that was just launched.
func WaitForPort(ctx context.Context, address string, timeout, interval time.Duration, dialer *DialerConfig) error {
	cfg := dialer.Clone()
	// Each attempt is bounded by the poll cadence, not the overall budget.
	if interval > 0 && (cfg.Timeout <= 0 || cfg.Timeout > interval*10) {
		cfg.Timeout = interval * 10
	}
	return wait.For(ctx, func(ctx context.Context) (bool, error) {
		conn, err := DialTCPContext(ctx, "tcp", address, cfg)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	}, wait.Options{
		Timeout:  timeout,
		Interval: interval,
		Message:  "waiting for port " + address,
	})
}
