package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the MySQL schema",
	Long: `Create the MySQL tables used by the backend, currently just the
symbol registry. Safe to run repeatedly.

Examples:
  vp-back migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}

	mysqlClient, err := database.NewMySQLClient(&cfg.MySQL, log)
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	defer mysqlClient.Close()

	if err := mysqlClient.Migrate(context.Background()); err != nil {
		return err
	}

	log.Info("Migration completed")
	return nil
}
