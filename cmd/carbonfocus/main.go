// Command carbonfocus calculates greenhouse gas emissions and science-based
// reduction targets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/carbonfocus/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // Injected by the linker.

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitItemsFailed = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps a command error to a process exit code. Partial
// recalculation failures exit 2 so scripts can tell them from usage errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cli.ErrItemsFailed):
		return exitItemsFailed
	default:
		return exitFailure
	}
}
