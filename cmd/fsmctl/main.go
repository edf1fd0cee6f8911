// Command fsmctl validates, renders and steps through state machine
// definition documents.
//
//	fsmctl validate [-strict] [-fix] [-o out.yaml] door.yaml
//	fsmctl render [-direction LR] [-highlight closed,opened] door.yaml
//	fsmctl simulate door.yaml
//	fsmctl version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/amp-labs/fsm/build"
	"github.com/amp-labs/fsm/cli"
	"github.com/amp-labs/fsm/logger"
	"github.com/amp-labs/fsm/shutdown"
	"github.com/amp-labs/fsm/telemetry"
)

const appName = "fsmctl"

// buildInfo is JSON injected with -ldflags "-X main.buildInfo=...".
var buildInfo string //nolint:gochecknoglobals

var (
	errUsage          = errors.New("usage: fsmctl <validate|render|simulate|version> [flags] <file>")
	errUnknownCommand = errors.New("unknown command")
	errInvalid        = errors.New("definition is invalid")
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx := logger.WithSubsystem(context.Background(), appName)

	tcfg, err := telemetry.LoadConfigFromEnv(ctx, "local")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	if _, set := os.LookupEnv("OTEL_SERVICE_VERSION"); !set {
		tcfg.ServiceVersion = build.Current(buildInfo).Version
	}

	if err := telemetry.Initialize(ctx, tcfg); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	opts := append(telemetry.LoggingOptions(), logger.WithOutput(os.Stderr))
	if _, err := logger.ConfigureLogging(appName, opts...); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	ctx = shutdown.SetupHandler(ctx)
	defer shutdown.Shutdown()

	shutdown.BeforeShutdown(func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Get(ctx).Error("failed to flush telemetry", "error", err)
		}
	})

	app := &app{stdout: os.Stdout, stderr: os.Stderr}

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}

		return 1
	}

	return 0
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	prompt cli.Prompter
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "validate":
		return a.validate(ctx, args[1:])
	case "render":
		return a.render(args[1:])
	case "simulate":
		return a.simulate(ctx, args[1:])
	case "version":
		fmt.Fprintf(a.stdout, "%s %s\n", appName, build.Current(buildInfo))

		return nil
	case "-h", "-help", "--help", "help":
		fmt.Fprintln(a.stdout, errUsage)

		return nil
	default:
		return fmt.Errorf("%w %q\n%w", errUnknownCommand, args[0], errUsage)
	}
}

// onlyFile returns the single positional argument left after flag parsing.
func onlyFile(rest []string) (string, error) {
	if len(rest) != 1 {
		return "", errUsage
	}

	return rest[0], nil
}
