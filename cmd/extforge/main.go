package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/extforge/internal/app"
	"github.com/specialistvlad/extforge/internal/cli"
)

// main is the entrypoint for the extforge application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.CodeFailure)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. The report goes to outW, logs and usage text to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	env, err := app.LoadEnv()
	if err != nil {
		return &cli.ExitError{Code: cli.CodeUsage, Message: err.Error()}
	}

	appConfig, shouldExit, err := cli.Parse(args, errW, env)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	extforge, err := app.NewApp(outW, errW, appConfig)
	if err != nil {
		return err
	}
	_, err = extforge.Run(ctx)
	return err
}
