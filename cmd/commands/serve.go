package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dropship-api/internal/api"
	"dropship-api/internal/auth"
	"dropship-api/internal/cache"
	"dropship-api/internal/config"
	"dropship-api/internal/consumer"
	"dropship-api/internal/events"
	"dropship-api/internal/repository"
	"dropship-api/internal/service"
	"dropship-api/migrations"
)

const shutdownTimeout = 10 * time.Second

var port string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Long: `Run the REST API. When KAFKA_BROKERS is set, order events are published
and the low-stock consumer runs alongside the server. When REDIS_ADDR is set,
product reads are cached, Idempotency-Key headers are honoured and the rate
limit is shared across instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "HTTP port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, db, err := config.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := migrations.AutoMigrateIndexes(ctx, db, 3); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	rdb := config.NewRedisClient(cfg.RedisAddr)
	var rateStore middleware.RateLimiterStore
	if rdb != nil {
		defer rdb.Close()
		rateStore = api.NewRedisRateLimiterStore(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		rateStore = api.NewMemoryRateLimiterStore(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	g, ctx := errgroup.WithContext(ctx)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled() {
		writer := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrderTopic)
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer)

		reader := config.NewKafkaReader(cfg.KafkaBrokers, cfg.OrderTopic, cfg.ConsumerGroup)
		stockAlerts := consumer.NewConsumer(reader, productRepo, cfg.LowStockThreshold)
		g.Go(func() error {
			stockAlerts.Start(ctx)
			return nil
		})
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	users := service.NewUserService(userRepo, tokens)
	products := service.NewProductService(productRepo, cache.NewProductCache(rdb, cfg.ProductCacheTTL))
	orders := service.NewOrderService(orderRepo, userRepo, productRepo, products, publisher, cache.NewIdempotencyStore(rdb))

	e := api.NewServer(api.ServerConfig{
		Production:     cfg.IsProduction(),
		Tokens:         tokens,
		Users:          users,
		Products:       products,
		Orders:         orders,
		RateLimitStore: rateStore,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	})

	g.Go(func() error {
		log.Info().Msgf("Listening on :%s (%s)", cfg.Port, cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
