package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/cobra"

	"dropship-api/internal/config"
)

var (
	// Global flags
	logLevel string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dropship",
	Short: "Dropshipping store API",
	Long: `dropship serves the storefront REST API: customer accounts, the product
catalog with ratings and discounts, and order placement with stock tracking.

Configuration is read from the environment (MONGO_URI, JWT_SECRET, REDIS_ADDR,
KAFKA_BROKERS, ...); flags override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		return setupLogging(cfg.LogLevel)
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	return nil
}
