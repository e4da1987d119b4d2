package main

import (
	"database/sql"
	"fmt"

	"shiptrack/cmd"
	"shiptrack/internal/adapters/out/postgres"
	"shiptrack/internal/adapters/out/postgres/migrations"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version|redo|reset]",
		Short: "Manage the database schema",
		Long: `Runs a goose command against PostgreSQL. With the sqlite driver the
schema is created by auto-migration and only "up" is supported.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset"},
		RunE: func(c *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}

			switch cfg.DB.Driver {
			case cmd.DBDriverMemory:
				log.Info("In-memory storage has no schema to migrate")
				return nil
			case cmd.DBDriverSQLite:
				if command != "up" {
					return fmt.Errorf("sqlite supports only %q, got %q", "up", command)
				}
				db, err := postgres.Open(postgres.Options{Driver: postgres.DriverSQLite, DSN: cfg.DB.ConnectionString()})
				if err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer sqlDB.Close()
				}
				return postgres.AutoMigrate(db)
			}

			db, err := sql.Open("postgres", cfg.DB.ConnectionString())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := migrations.Run(c.Context(), db, command); err != nil {
				return err
			}
			log.Infof("Migration %q finished", command)
			return nil
		},
	}
}
