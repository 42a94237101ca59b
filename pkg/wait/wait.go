// File: pkg/wait/wait.go

// Package wait implements a bounded retry loop that repeatedly evaluates a
// condition until it reports success, reports an error, or a deadline expires.
//
// The loop polls at a fixed interval. It does not back off: the probes it is
// built for target a local automation endpoint and short-lived UI state, so
// responsiveness matters more than load.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultInterval is the delay between two consecutive probe attempts.
	DefaultInterval = 20 * time.Millisecond
	// DefaultTimeout is used when Options.Timeout is not set.
	DefaultTimeout = 3 * time.Second
)

// ErrTimeout is matched by every *TimeoutError returned from For.
var ErrTimeout = errors.New("wait: timeout exceeded")

// Probe evaluates the awaited condition once. Returning a non-nil error aborts
// the wait; returning done=false schedules another attempt.
//
// The context handed to a probe is cancelled as soon as the wait has decided,
// so an attempt still running at the deadline should return promptly.
type Probe func(ctx context.Context) (done bool, err error)

// Options tune a single call to For.
type Options struct {
	// Timeout is the hard deadline measured from the start of the wait.
	Timeout time.Duration
	// Interval is the fixed delay between attempts.
	Interval time.Duration
	// NoError turns an expired deadline into a silent success.
	NoError bool
	// Message describes what is being waited for. It ends up in the timeout error.
	Message string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// TimeoutError reports that the deadline of a wait expired before the probe
// reported success. It is a local condition and never carries a wire status.
type TimeoutError struct {
	Timeout time.Duration
	Message string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("Timeout (%d ms) exceeded", e.Timeout.Milliseconds())
	if e.Message != "" {
		msg += " while " + e.Message
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) hold for every TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type attempt struct {
	done bool
	err  error
}

// For runs probe until it reports done, reports an error, or opts.Timeout
// elapses. It returns nil on success, the probe's error verbatim, a
// *TimeoutError on expiry (nil when opts.NoError is set), or ctx.Err() if the
// parent context ends first.
//
// Only one attempt is in flight at any time. An attempt that finishes after the
// wait has already decided is discarded.
func For(ctx context.Context, probe Probe, opts Options) error {
	if probe == nil {
		return errors.New("wait: nil probe")
	}
	opts = opts.withDefaults()

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	expired := func() error {
		if opts.NoError {
			return nil
		}
		return &TimeoutError{Timeout: opts.Timeout, Message: opts.Message}
	}

	// Buffered so that an attempt finishing after the decision never blocks.
	results := make(chan attempt, 1)

	for {
		go func() {
			done, err := probe(probeCtx)
			results <- attempt{done: done, err: err}
		}()

		select {
		case res := <-results:
			if res.err != nil {
				return res.err
			}
			if res.done {
				return nil
			}
		case <-deadline.C:
			return expired()
		case <-ctx.Done():
			return ctx.Err()
		}

		retry := time.NewTimer(opts.Interval)
		select {
		case <-retry.C:
		case <-deadline.C:
			retry.Stop()
			return expired()
		case <-ctx.Done():
			retry.Stop()
			return ctx.Err()
		}
	}
}
