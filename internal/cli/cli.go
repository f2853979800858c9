package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/extforge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	CodeFailure = 1
	CodeUsage   = 2
)

// Parse processes command-line arguments over the environment defaults. It
// returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer, env app.EnvDefaults) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("extforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
extforge - Resolves build extensions and runs their build steps.

Usage:
  extforge [options] WORKSPACE_PATH

Arguments:
  WORKSPACE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Environment:
  EXTFORGE_LOG_LEVEL, EXTFORGE_LOG_FORMAT, EXTFORGE_WORKERS, EXTFORGE_JOURNAL
    Defaults for the matching options. A .env file in the working
    directory is read first.

Options:
`)
		flagSet.PrintDefaults()
	}

	workspaceFlag := flagSet.String("workspace", "", "Path to the workspace file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workspace file or directory (shorthand).")
	modeFlag := flagSet.String("mode", string(app.ModeBuild), "What to run. Options: 'resolve', 'plan' or 'build'.")
	devFlag := flagSet.Bool("dev", false, "Enable dev mode: walk conditional dev dependencies and report the module layout.")
	logFormatFlag := flagSet.String("log-format", env.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", env.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", env.Workers, "Number of concurrently running build steps. 0 uses all CPUs.")
	journalFlag := flagSet.String("journal", env.JournalDSN, "Build journal DSN: a SQLite path or a postgres:// URL. Empty disables it.")
	outputFlag := flagSet.String("o", "", "Write the JSON report to this file instead of stdout.")
	cacheFlag := flagSet.Int("descriptor-cache", 0, "Descriptor cache size. 0 uses the default.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workspaceFlag != "" {
		path = *workspaceFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workspace path determined.", "path", path)

	if path == "" {
		slog.Debug("No workspace path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: CodeUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: CodeUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkspacePath:   path,
		Mode:            app.Mode(strings.ToLower(*modeFlag)),
		DevMode:         *devFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		JournalDSN:      *journalFlag,
		OutputPath:      *outputFlag,
		CacheSize:       *cacheFlag,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
