package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dropship-api/internal/config"
	"dropship-api/migrations"
)

var migrateRetries int

// migrateCmd creates the MongoDB indexes
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create MongoDB indexes",
	Long: `Create the indexes the API relies on (unique user email, unique order
number, catalog filters). Safe to run repeatedly.

Examples:
  dropship migrate
  dropship migrate --retries 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateRetries, "retries", 3, "Retries per collection")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	client, db, err := config.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := migrations.AutoMigrateIndexes(ctx, db, migrateRetries); err != nil {
		return err
	}
	log.Info().Msgf("Indexes ready on %s", cfg.MongoDatabase)
	return nil
}
