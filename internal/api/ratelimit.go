package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RedisRateLimiterStore counts requests per identifier in fixed windows
// shared by every API instance.
type RedisRateLimiterStore struct {
	rdb      *redis.Client
	limit    int
	window   time.Duration
	now      func() time.Time
	errorLog rate.Sometimes
}

func NewRedisRateLimiterStore(rdb *redis.Client, limit int, window time.Duration) *RedisRateLimiterStore {
	return &RedisRateLimiterStore{
		rdb:      rdb,
		limit:    limit,
		window:   window,
		now:      time.Now,
		errorLog: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := windowKey(identifier, s.now(), s.window)
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// fail open
		s.errorLog.Do(func() {
			logger.Error().Err(err).Msg("Error counting request in redis")
		})
		return true, nil
	}
	return incr.Val() <= int64(s.limit), nil
}

func windowKey(identifier string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", identifier, now.Truncate(window).Unix())
}

// MemoryRateLimiterStore counts requests per identifier in fixed windows
// held by this process.
type MemoryRateLimiterStore struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	counters  map[string]*windowCounter
	lastSweep time.Time
	now       func() time.Time
}

type windowCounter struct {
	start time.Time
	count int
}

func NewMemoryRateLimiterStore(limit int, window time.Duration) *MemoryRateLimiterStore {
	return &MemoryRateLimiterStore{
		limit:    limit,
		window:   window,
		counters: map[string]*windowCounter{},
		now:      time.Now,
	}
}

func (s *MemoryRateLimiterStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	start := now.Truncate(s.window)
	if now.Sub(s.lastSweep) >= s.window {
		for id, c := range s.counters {
			if c.start.Before(start) {
				delete(s.counters, id)
			}
		}
		s.lastSweep = now
	}

	c, ok := s.counters[identifier]
	if !ok || !c.start.Equal(start) {
		c = &windowCounter{start: start}
		s.counters[identifier] = c
	}
	c.count++
	return c.count <= s.limit, nil
}

func rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	})
}
