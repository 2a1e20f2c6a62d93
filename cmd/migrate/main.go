package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrationsPath string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the marketplace database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "file://migrations", "migrations source URL")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(_ *cobra.Command, _ []string) error {
				return withMigrate(func(m *migrate.Migrate) error {
					if err := m.Up(); err != nil {
						if errors.Is(err, migrate.ErrNoChange) {
							logger.Info("no pending migrations")
							return nil
						}
						return err
					}
					logger.Info("migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(_ *cobra.Command, _ []string) error {
				return withMigrate(func(m *migrate.Migrate) error {
					if err := m.Steps(-1); err != nil {
						if errors.Is(err, migrate.ErrNoChange) {
							logger.Info("no migrations to rollback")
							return nil
						}
						return err
					}
					logger.Info("migration rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE: func(_ *cobra.Command, _ []string) error {
				return withMigrate(func(m *migrate.Migrate) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						logger.Info("no migrations applied yet")
						return nil
					}
					if err != nil {
						return err
					}
					logger.Info("current migration version",
						slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
					return nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		logger.Error("migration command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func withMigrate(fn func(*migrate.Migrate) error) error {
	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		return fmt.Errorf("POSTGRES_URL environment variable is required")
	}

	m, err := migrate.New(migrationsPath, postgresURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}
