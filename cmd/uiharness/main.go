// File: cmd/uiharness/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/uiharness/cmd"
	"github.com/xkilldash9x/uiharness/internal/observability"
)

const panicLogFile = "panic.log"

var (
	osWriteFile = os.WriteFile
	// Allows mocking os.Exit in tests.
	osExit = os.Exit
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			osExit(0)
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		osExit(1)
	}
}

// handlePanic writes the panic and its stack to panicLogFile and exits non-zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(2)
		return
	}
	fmt.Fprintf(os.Stderr, "CRASH DETECTED. Details logged to %s\n", panicLogFile)
	osExit(2)
}
