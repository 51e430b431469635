package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dropship-api/internal/auth"
	"dropship-api/internal/config"
	"dropship-api/internal/repository"
	"dropship-api/internal/service"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

// createAdminCmd creates an admin account; registration over HTTP only
// creates customers.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an admin account and print its id and a bearer token.

Example:
  dropship create-admin --name "Store Owner" --email owner@example.com --password s3cret!`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateAdmin(cmd.Context(), cmd)
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Admin display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(ctx context.Context, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	client, db, err := config.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	users := service.NewUserService(repository.NewUserRepository(db), auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn))
	res, err := users.CreateAdmin(ctx, service.RegisterInput{
		Name:     adminName,
		Email:    adminEmail,
		Password: adminPassword,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\ntoken: %s\n", res.User.ID.Hex(), res.Token)
	return nil
}
