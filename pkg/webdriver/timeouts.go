// File: pkg/webdriver/timeouts.go
package webdriver

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Timeout types. The first three are protocol timeouts and are pushed to the
// server; the rest only bound client-side waits.
const (
	TimeoutPageLoad         = "page load"
	TimeoutScript           = "script"
	TimeoutImplicit         = "implicit"
	TimeoutWaitFor          = "waitFor"
	TimeoutWaitForElement   = "waitForElement"
	TimeoutWaitForURLChange = "waitForUrlChange"
)

var protocolTimeouts = map[string]bool{
	TimeoutPageLoad: true,
	TimeoutScript:   true,
	TimeoutImplicit: true,
}

// IsProtocolTimeout reports whether typ is sent to the server.
func IsProtocolTimeout(typ string) bool {
	return protocolTimeouts[typ]
}

// DefaultTimeouts returns the timeouts a new session starts with.
func DefaultTimeouts() map[string]time.Duration {
	return map[string]time.Duration{
		TimeoutPageLoad:         3500 * time.Millisecond,
		TimeoutScript:           time.Second,
		TimeoutImplicit:         0,
		TimeoutWaitFor:          3 * time.Second,
		TimeoutWaitForElement:   3 * time.Second,
		TimeoutWaitForURLChange: 3 * time.Second,
	}
}

// SetTimeout records a timeout. Protocol timeouts are sent to the server
// first and only recorded once it accepts them.
func (s *Session) SetTimeout(ctx context.Context, typ string, d time.Duration) (err error) {
	defer s.trace("SetTimeout", &err, typ, d.Milliseconds())

	if IsProtocolTimeout(typ) {
		_, err = s.command(ctx, Command{
			Path:   "/timeouts",
			Method: http.MethodPost,
			Body:   map[string]any{"type": typ, "ms": d.Milliseconds()},
		})
		if err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.timeouts[typ] = d
	s.mu.Unlock()
	return nil
}

// SetTimeouts applies every entry of timeouts concurrently and returns the
// first failure.
func (s *Session) SetTimeouts(ctx context.Context, timeouts map[string]time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	for typ, d := range timeouts {
		typ, d := typ, d
		g.Go(func() error {
			return s.SetTimeout(gctx, typ, d)
		})
	}
	return g.Wait()
}

// Timeout returns the recorded timeout for typ.
func (s *Session) Timeout(typ string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.timeouts[typ]
	return d, ok
}

// Timeouts returns a copy of every recorded timeout.
func (s *Session) Timeouts() map[string]time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeoutsLocked()
}

func (s *Session) timeoutsLocked() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.timeouts))
	for k, v := range s.timeouts {
		out[k] = v
	}
	return out
}

// waitBudget resolves the client-side budget for a wait, falling back to the
// generic waitFor timeout.
func (s *Session) waitBudget(typ string) time.Duration {
	if d, ok := s.Timeout(typ); ok && d > 0 {
		return d
	}
	if d, ok := s.Timeout(TimeoutWaitFor); ok && d > 0 {
		return d
	}
	return DefaultTimeouts()[TimeoutWaitFor]
}
