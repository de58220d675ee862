package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/shakegrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("shakegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
shakegrid - A declarative batch runner for cyclic-loading (liquefaction) experiments.

Usage:
  shakegrid [options] [SCENARIO_PATH...]
  shakegrid [options] -preset babai

Arguments:
  SCENARIO_PATH
    Path to a .hcl/.yaml file or a directory containing scenario files.

Options:
`)
		flagSet.PrintDefaults()
	}

	scenariosFlag := flagSet.String("scenarios", "", "Path to the scenario file or directory.")
	sFlag := flagSet.String("s", "", "Path to the scenario file or directory (shorthand).")
	presetFlag := flagSet.String("preset", "", "Run the reference experiment of a built-in soil preset ('babai', 'bansilaghat').")
	onlyFlag := flagSet.String("only", "", "Comma-separated list of run names to execute.")
	outFlag := flagSet.String("out", "results", "Output directory. Each run writes into a sub-directory named after it.")
	workersFlag := flagSet.Int("workers", 1, "Number of scenarios run concurrently.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health/status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	catalogFlag := flagSet.String("catalog", "", "Path to a SQLite run catalog. Empty disables it.")
	uploadFlag := flagSet.String("upload-url", "", "Base URL exported files are PUT to. Empty disables uploads.")
	wallClockFlag := flagSet.Duration("max-wall-clock", 0, "Default real-time limit per run, e.g. '10m'. 0 is unbounded.")
	engineTimeoutFlag := flagSet.Duration("engine-timeout", 10*time.Second, "Timeout of a single call to a remote engine.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	switch {
	case *scenariosFlag != "":
		paths = []string{*scenariosFlag}
	case *sFlag != "":
		paths = []string{*sFlag}
	case flagSet.NArg() > 0:
		paths = flagSet.Args()
	}
	slog.Debug("Scenario paths determined.", "paths", paths)

	if len(paths) == 0 && *presetFlag == "" {
		slog.Debug("No scenario path or preset provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var only []string
	for _, name := range strings.Split(*onlyFlag, ",") {
		if name = strings.TrimSpace(name); name != "" {
			only = append(only, name)
		}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ScenarioPaths:   paths,
		Preset:          *presetFlag,
		Only:            only,
		OutputDir:       *outFlag,
		Workers:         *workersFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		CatalogPath:     *catalogFlag,
		UploadURL:       *uploadFlag,
		MaxWallClock:    *wallClockFlag,
		EngineTimeout:   *engineTimeoutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
