package cmd

import (
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/propsuite/property-management-backend/db"
)

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema migration helpers",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration helpers",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}
	migrateCmd.AddCommand(migrationCommand("up", "Migrates the database up", migrate.Up))
	migrateCmd.AddCommand(migrationCommand("down", "Migrates the database down [count]", migrate.Down))
	cmd.AddCommand(migrateCmd)

	return cmd
}

func migrationCommand(use, short string, dir migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [count]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count := 0
			if len(args) > 0 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil {
					log.Fatalf("Invalid migration count %q: %s", args[0], err.Error())
				}
			}

			applied, err := db.Migrate(globalOptions.DatabaseURL, dir, count)
			if err != nil {
				log.Fatalf("Error migrating database: %s", err.Error())
			}
			if applied == 0 {
				log.Info("No migrations applied.")
			} else {
				log.Infof("Successfully applied %d migrations.", applied)
			}
		},
	}
}
