// File: cmd/session.go
package cmd

import (
	"github.com/xkilldash9x/scalpel-wd/internal/config"
	"github.com/xkilldash9x/scalpel-wd/internal/observability"
	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

// newSession builds an uninitialized session from cfg, attaching the call
// tracer and command metrics when they are enabled. metrics is nil otherwise.
func newSession(cfg config.Interface) (sess *webdriver.Session, metrics *observability.CommandMetrics, err error) {
	logger := observability.GetLogger()

	opts, err := cfg.SessionOptions(logger)
	if err != nil {
		return nil, nil, err
	}
	if trace := cfg.Trace(); trace.LogMethodCalls {
		opts.Tracer = observability.NewCallTracer(logger, trace)
	}
	if m := cfg.Metrics(); m.Enabled {
		metrics = observability.NewCommandMetrics(m.Namespace)
		opts.Observer = metrics
	}
	return webdriver.New(opts), metrics, nil
}
