package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectRetries = 10

// ConnectMongo dials MongoDB and pings it, retrying while the server comes up.
func ConnectMongo(ctx context.Context, uri, dbname string) (*mongo.Client, *mongo.Database, error) {
	var err error
	for i := 0; i < connectRetries; i++ {
		var client *mongo.Client
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				log.Info().Msgf("Connected to MongoDB database %s", dbname)
				return client, client.Database(dbname), nil
			}
			_ = client.Disconnect(ctx)
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to connect to MongoDB", i+1)

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, nil, fmt.Errorf("failed to connect to MongoDB %s after retries: %w", dbname, err)
}

// NewRedisClient returns nil when addr is empty.
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
