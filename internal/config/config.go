package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string
	Port          string
	LogLevel      string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	KafkaBrokers  []string
	OrderTopic    string
	ConsumerGroup string

	JWTSecret    []byte
	JWTExpiresIn time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ProductCacheTTL   time.Duration
	LowStockThreshold int
}

func LoadConfig() *Config {
	return &Config{
		Env:               getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017/?directConnection=true"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "dropship"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		KafkaBrokers:      getKafkaBrokerURLs(),
		OrderTopic:        getEnv("ORDER_TOPIC", "order-topic"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "dropship-stock-alerts"),
		JWTSecret:         []byte(getEnv("JWT_SECRET", "")),
		JWTExpiresIn:      getDuration("JWT_EXPIRES_IN", 30*24*time.Hour),
		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		ProductCacheTTL:   getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5),
	}
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("JWT_SECRET is not set in environment")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getKafkaBrokerURLs returns nil when KAFKA_BROKERS is unset, which disables
// event publishing.
func getKafkaBrokerURLs() []string {
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
