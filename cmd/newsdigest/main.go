package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paaalop/news-analyzer/internal/app"
	"github.com/paaalop/news-analyzer/internal/config"
	"github.com/paaalop/news-analyzer/internal/logging"
	"github.com/paaalop/news-analyzer/internal/usecase"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	mode string
	day  time.Time
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run returns the process exit code so deferred cleanup always executes.
func run(args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	opts, err := parseOptions(args, cfg, stderr)
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		return exitUsage
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return exitError
	}
	defer application.Close()

	if err := execute(ctx, application, opts); err != nil {
		logger.Error("application stopped", "error", err)
		return exitError
	}
	return exitOK
}

// parseOptions validates flags before any resource is opened.
func parseOptions(args []string, cfg config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("newsdigest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "once", "run mode: once, schedule or serve")
	date := fs.String("date", "", "digest this day (YYYY-MM-DD) instead of yesterday; once mode only")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{mode: *mode}
	switch opts.mode {
	case "once":
		opts.day = usecase.PreviousDay(time.Now().In(cfg.Scheduler.Location()))
		if *date != "" {
			day, err := cfg.Day(*date)
			if err != nil {
				return options{}, err
			}
			opts.day = day
		}
	case "schedule", "serve":
		if *date != "" {
			return options{}, fmt.Errorf("-date is only valid with -mode once")
		}
	default:
		return options{}, fmt.Errorf("unknown mode %q", opts.mode)
	}
	return opts, nil
}

func execute(ctx context.Context, application *app.Application, opts options) error {
	switch opts.mode {
	case "schedule":
		return application.Schedule(ctx)
	case "serve":
		return application.Serve(ctx)
	default:
		_, err := application.RunOnce(ctx, opts.day)
		return err
	}
}

