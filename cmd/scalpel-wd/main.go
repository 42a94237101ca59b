// File: cmd/scalpel-wd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-wd/cmd"
	"github.com/xkilldash9x/scalpel-wd/internal/observability"
)

// Allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osExit(run(ctx))
}

// run executes the command tree and maps the outcome to an exit code.
func run(ctx context.Context) int {
	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.GetLogger().Error("Unrecovered panic",
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)
	observability.Sync()
	fmt.Fprintf(os.Stderr, "panic: %v\n", r)
	osExit(2)
}
