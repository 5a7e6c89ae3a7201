package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/revisant/dictum/internal/adapter/postgres"
	"github.com/revisant/dictum/internal/config"
)

// runMigrate dispatches migrate subcommands (up, down).
func runMigrate(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printMigrateHelp()
		return nil
	}

	switch args[0] {
	case "up":
		return runMigrateUp(args[1:])
	case "down":
		return runMigrateDown(args[1:])
	default:
		printMigrateHelp()
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}
}

func printMigrateHelp() {
	fmt.Fprintf(os.Stderr, `Usage: dictum migrate <command> [options]

Commands:
  up      Apply all pending migrations
  down    Roll back migrations (default 1 step)
  help    Show this help message

Examples:
  dictum migrate up
  dictum migrate down
  dictum migrate down --steps 2
`)
}

func runMigrateUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := postgres.RunMigrations(context.Background(), cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	fmt.Fprintln(os.Stderr, "migrations applied")
	return nil
}

func runMigrateDown(args []string) error {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be >= 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	fmt.Fprintf(os.Stderr, "rolled back %d migration(s)\n", *steps)
	return nil
}
