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

	"github.com/specialistvlad/shakegrid/internal/app"
	"github.com/specialistvlad/shakegrid/internal/cli"
	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/specialistvlad/shakegrid/internal/hcl"
	"github.com/specialistvlad/shakegrid/internal/yamlconf"
)

// main is the entrypoint for the shakegrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical startup errors, so we recover here to
	// return a clean error to the caller.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	loader := config.NewMultiLoader(hcl.NewLoader(), yamlconf.NewLoader())
	shakegrid := app.NewApp(outW, appConfig, loader)
	defer shakegrid.Close()

	if _, err := shakegrid.Run(ctx); err != nil {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}
