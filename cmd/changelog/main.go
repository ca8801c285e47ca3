// changelog builds one release changelog from the command line using the same
// pipeline as the HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/bootstrap"
	"github.com/ZertGraf/changelog-builder/internal/export"
	"github.com/spf13/pflag"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := newFlagSet(&opts)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if opts.help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(bootstrap.Options{
		LogOutput:      os.Stderr,
		DisableArchive: !opts.archive,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	if err := app.InitPipeline(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	req, err := opts.buildRequest(app.Config.Repositories(), app.Config.DefaultReleaseBranch, time.Now())
	if err != nil {
		return err
	}

	report, err := app.ChangelogService.GenerateReport(ctx, req)
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := export.Write(out, report, format); err != nil {
		return err
	}

	app.Logger.Info("changelog written",
		"stories", report.Summary.TotalStories,
		"format", format,
		"out", opts.out,
	)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `changelog builds a release changelog from merged pull requests and their tickets.

Upstream credentials and defaults come from the environment (or .env), the
same as for the server.

Usage:
  changelog [flags]

Examples:
  changelog --repo MB/mobile-app --release release/2025-09 --days 14
  changelog -r MB/mobile-app -r MB/backend-api --from 2025-09-01 --to 2025-09-30 -f html -o changelog.html

Flags:
%s`, flagSet.FlagUsages())
}
