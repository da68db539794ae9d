package cmd

import (
	"context"
	"fmt"
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/db"
	internalutils "github.com/solanize/solanize-client/internal/utils"
)

type migrateCmd struct{}

func (c *migrateCmd) Command() *cobra.Command {
	var tokenDBPath string
	cfgOpts := config.ConfigOptions{
		utils.TokenDBPathOption(&tokenDBPath),
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Token database migration helpers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := utils.DefaultPersistentPreRunE(cfgOpts)(cmd, args); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
		},
	}

	migrateUpCmd := cobra.Command{
		Use:   "up [count]",
		Short: "Migrates the token database up [count] migrations, all of them by default",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var count int
			if len(args) > 0 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil {
					log.Fatalf("Invalid [count] argument: %s", args[0])
				}
			}

			if err := executeMigrations(cmd.Context(), tokenDBPath, migrate.Up, count); err != nil {
				log.Fatalf("Error executing migrate up: %v", err)
			}
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:   "down [count]",
		Short: "Migrates the token database down [count] migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				log.Fatalf("Invalid [count] argument: %s", args[0])
			}

			if err := executeMigrations(cmd.Context(), tokenDBPath, migrate.Down, count); err != nil {
				log.Fatalf("Error executing migrate down: %v", err)
			}
		},
	}

	migrateCmd.AddCommand(&migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	if err := cfgOpts.Init(migrateCmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return migrateCmd
}

func executeMigrations(ctx context.Context, tokenDBPath string, direction migrate.MigrationDirection, count int) error {
	dbConnectionPool, err := db.OpenDBConnectionPool(db.SQLiteDSN(tokenDBPath))
	if err != nil {
		return fmt.Errorf("opening token database: %w", err)
	}
	defer internalutils.DeferredClose(ctx, dbConnectionPool, "closing token database")

	numMigrationsRun, err := db.Migrate(ctx, dbConnectionPool, direction, count)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numMigrationsRun == 0 {
		log.Ctx(ctx).Info("No migrations applied.")
	} else {
		log.Ctx(ctx).Infof("Successfully applied %d migrations %s.", numMigrationsRun, migrationDirectionStr(direction))
	}
	return nil
}

func migrationDirectionStr(direction migrate.MigrationDirection) string {
	if direction == migrate.Up {
		return "up"
	}
	return "down"
}
