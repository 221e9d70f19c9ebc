package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nerrad567/robot-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/database"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/robot-sequencer/migrations"
)

// newMigrateCommand applies pending migrations and exits. The status and
// down subcommands inspect or roll back the schema.
func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withDatabase(ctx, command, func(db *database.DB, log *logging.Logger) error {
				if err := db.Migrate(ctx, migrations.FS); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				log.Info("database migrations complete", "path", db.Path())
				return nil
			})
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "List applied and pending migrations",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withDatabase(ctx, command, func(db *database.DB, _ *logging.Logger) error {
						applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
						if err != nil {
							return fmt.Errorf("reading migration status: %w", err)
						}
						w := command.Root().Writer
						for _, rec := range applied {
							fmt.Fprintf(w, "applied  %s  %s\n", rec.Version, rec.AppliedAt.Format("2006-01-02 15:04:05"))
						}
						for _, m := range pending {
							fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
						}
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recently applied migration",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withDatabase(ctx, command, func(db *database.DB, log *logging.Logger) error {
						if err := db.MigrateDown(ctx, migrations.FS); err != nil {
							return fmt.Errorf("rolling back migration: %w", err)
						}
						log.Info("rolled back last migration", "path", db.Path())
						return nil
					})
				},
			},
		},
	}
}

// withDatabase loads config, opens the database, and closes it after fn.
func withDatabase(ctx context.Context, command *cli.Command, fn func(db *database.DB, log *logging.Logger) error) error {
	configPath := command.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	return fn(db, log)
}
