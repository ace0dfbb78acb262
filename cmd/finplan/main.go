// Command finplan computes financial health metrics for a client plan and
// serves goal recommendations from a fingerprint-keyed cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/finplan/internal/cli"
	"github.com/rshade/finplan/pkg/version"
)

func main() {
	os.Exit(extractAlertExitCode(run()))
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	err := root.ExecuteContext(ctx)
	if err != nil {
		var alertErr *cli.AlertExitError
		if !errors.As(err, &alertErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return err
}

// extractAlertExitCode maps a command error to a process exit code: 0 for
// success, the carried code for AlertExitError, 1 otherwise.
func extractAlertExitCode(err error) int {
	if err == nil {
		return 0
	}
	var alertErr *cli.AlertExitError
	if errors.As(err, &alertErr) {
		return alertErr.ExitCode
	}
	return 1
}
