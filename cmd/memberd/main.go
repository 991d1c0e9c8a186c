// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/clubworks/memberd/internal/config"
	"github.com/clubworks/memberd/internal/database"
	"github.com/clubworks/memberd/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "memberd",
		Usage:  "Club membership backend",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations and exit",
				Flags:  config.Flags(),
				Action: runMigrate,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Flags:  config.Flags(),
				Action: runRollback,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	// Open applies pending migrations as part of its startup sequence.
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return db.Close()
}

func runRollback(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return database.MigrateDown(db.DB)
}
