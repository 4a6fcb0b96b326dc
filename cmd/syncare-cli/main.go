package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dukerupert/syncare/internal/cli"
	"github.com/dukerupert/syncare/internal/config"
	"github.com/dukerupert/syncare/internal/logging"
	"github.com/dukerupert/syncare/internal/scheduler"
	"github.com/dukerupert/syncare/internal/store"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: syncare-cli [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Edits the appointment book in the configured storage backend.\n")
		fmt.Fprintf(os.Stderr, "Commands are read from stdin, one per line; type help for a list.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Keep log lines off stdout so the transcript stays readable.
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := cfg.OpenKV(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s storage: %v\n", cfg.Storage, err)
		os.Exit(1)
	}
	defer closeKV()

	svc, err := scheduler.Open(ctx, store.NewAppointmentStore(kv, logger.With("component", "appointment_store")),
		scheduler.WithLogger(logger.With("component", "scheduler")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	repl := cli.New(
		scheduler.NewController(svc, nil),
		store.NewSOSStore(kv, logger.With("component", "sos_store")),
		os.Stdin, os.Stdout, interactive,
		logger.With("component", "cli"),
	)
	if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
