package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dropship", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_REQUESTS", "20")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("JWT_EXPIRES_IN", "not-a-duration")

	cfg := LoadConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 20, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTExpiresIn)
}
