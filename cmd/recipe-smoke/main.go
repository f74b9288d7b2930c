// Command recipe-smoke drives a running recipe service through a full
// create, update and delete cycle and reports what it saw.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/recipebox/internal/smoke"
	"github.com/okian/recipebox/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "smoke run failed:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "recipe-smoke",
		Usage: "Exercise a running recipe service end to end",
		Description: `Checks /healthz, then creates recipes with unique names concurrently,
verifies they are listed with id == name, replaces each one, verifies the id
did not change, deletes them and verifies they are gone.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "Base URL of the service",
				Sources: cli.EnvVars("RECIPEBOX_SMOKE_URL"),
			},
			&cli.IntFlag{
				Name:    "recipes",
				Aliases: []string{"n"},
				Value:   smoke.DefaultRecipes,
				Usage:   "Number of recipes to create",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   smoke.DefaultWorkers,
				Usage:   "Maximum concurrent requests",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: smoke.DefaultTimeout,
				Usage: "Per-request HTTP timeout",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log output format (text, json)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every phase",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := logger.Init(logger.WithFormat(cmd.String("log-format"))); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			if cmd.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}

			stats, err := smoke.Run(ctx, &smoke.Config{
				BaseURL: cmd.String("url"),
				Recipes: cmd.Int("recipes"),
				Workers: cmd.Int("workers"),
				Timeout: cmd.Duration("timeout"),
				Verbose: cmd.Bool("verbose"),
				Logger:  logger.Named("smoke"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("created=%d updated=%d verified=%d deleted=%d duration=%s\n",
				stats.Created, stats.Updated, stats.Verified, stats.Deleted,
				stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
