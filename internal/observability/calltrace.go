// File: internal/observability/calltrace.go
package observability

import (
	"fmt"
	"strings"
	"unicode/utf8"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-wd/internal/config"
)

const truncationMarker = "..."

// CallTracer logs one line per public Session and Element call. It satisfies
// webdriver.CallTracer.
type CallTracer struct {
	logger      *zap.Logger
	argBudget   int
	errorBudget int
}

// NewCallTracer returns a tracer writing to logger. Rendered arguments and
// error messages are cut at the budgets from cfg.
func NewCallTracer(logger *zap.Logger, cfg config.TraceConfig) *CallTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallTracer{
		logger:      logger.Named("trace"),
		argBudget:   cfg.ArgBudget,
		errorBudget: cfg.ErrorBudget,
	}
}

func (t *CallTracer) TraceCall(scope, method string, args []any, err error) {
	call := scope + "." + method + "(" + t.renderArgs(args) + ")"
	if err != nil {
		t.logger.Warn("Call failed",
			zap.String("call", call),
			zap.String("error", truncate(err.Error(), t.errorBudget)),
		)
		return
	}
	t.logger.Info("Call", zap.String("call", call))
}

func (t *CallTracer) renderArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, truncate(renderArg(arg), t.argBudget))
	}
	return strings.Join(parts, ", ")
}

func renderArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "null"
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	raw, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprintf("%v", arg)
	}
	return string(raw)
}

// truncate cuts s to at most budget bytes, marker included, without splitting
// a rune. A non-positive budget disables truncation.
func truncate(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		return s
	}
	keep := budget - len(truncationMarker)
	if keep <= 0 {
		return truncationMarker[:budget]
	}
	for keep > 0 && !utf8.RuneStart(s[keep]) {
		keep--
	}
	return s[:keep] + truncationMarker
}
