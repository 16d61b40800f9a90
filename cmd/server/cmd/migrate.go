package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbookings/server/internal/config"
	"github.com/openbookings/server/internal/jobs"
	"github.com/openbookings/server/internal/storage/postgres"
)

var (
	migrationsPath string
	migrateDown    int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply pending database migrations, including the job queue schema.

Examples:
  # Apply all pending migrations
  server migrate

  # Roll back the last migration
  server migrate --down 1`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", postgres.DefaultMigrationsPath, "migrations directory")
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "roll back this many migrations instead of migrating up")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	if migrateDown > 0 {
		if err := postgres.MigrateDown(cfg.Database.URL, migrationsPath, migrateDown); err != nil {
			return err
		}
		logger.Info().Int("steps", migrateDown).Msg("rolled back migrations")
		return nil
	}

	if err := postgres.MigrateUp(cfg.Database.URL, migrationsPath); err != nil {
		return err
	}
	logger.Info().Msg("schema migrations applied")

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := jobs.MigrateUp(ctx, pool); err != nil {
		return fmt.Errorf("job queue migrations: %w", err)
	}
	logger.Info().Msg("job queue migrations applied")
	return nil
}
