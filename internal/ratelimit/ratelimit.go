// Package ratelimit enforces a per-source-address request budget on the API.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"weatherlog/internal/cache"
	apperrors "weatherlog/internal/errors"
)

const redisKeyPrefix = "ratelimit:"

// Store decides whether one more request from an identifier fits its budget.
type Store = middleware.RateLimiterStore

// MemoryStore is an in-process sliding window per identifier.
// It keeps the timestamps of the requests admitted during the last window,
// so no window-length span ever admits more than maxRequests.
type MemoryStore struct {
	mu        sync.Mutex
	visitors  map[string][]time.Time
	max       int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore builds a MemoryStore allowing maxRequests per window.
func NewMemoryStore(maxRequests int, window time.Duration) *MemoryStore {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryStore{
		visitors: make(map[string][]time.Time),
		max:      maxRequests,
		window:   window,
		now:      time.Now,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *MemoryStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.window {
		s.sweep(now)
	}

	hits := trim(s.visitors[identifier], now.Add(-s.window))
	if len(hits) >= s.max {
		s.visitors[identifier] = hits
		return false, nil
	}
	s.visitors[identifier] = append(hits, now)
	return true, nil
}

// trim drops hits at or before cutoff. hits is in arrival order.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

// sweep drops visitors whose newest hit has left the window.
func (s *MemoryStore) sweep(now time.Time) {
	cutoff := now.Add(-s.window)
	for id, hits := range s.visitors {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(s.visitors, id)
		}
	}
	s.lastSweep = now
}

// RedisStore is a fixed-window counter shared by every replica.
// Redis failures let the request through.
type RedisStore struct {
	cache   *cache.Client
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisStore builds a RedisStore allowing maxRequests per window.
func NewRedisStore(client *cache.Client, maxRequests int, window time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		cache:   client,
		limit:   int64(maxRequests),
		window:  window,
		timeout: 250 * time.Millisecond,
		logger:  logger,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.cache.IncrWithExpire(ctx, redisKeyPrefix+identifier, s.window)
	if err != nil {
		s.logger.Warn("rate limit store unavailable", slog.Any("error", err))
		return true, nil
	}
	return count <= s.limit, nil
}

// NewStore picks the Redis store when Redis is configured and the in-process store otherwise.
func NewStore(client *cache.Client, maxRequests int, window time.Duration, logger *slog.Logger) Store {
	if client.Enabled() {
		return NewRedisStore(client, maxRequests, window, logger)
	}
	return NewMemoryStore(maxRequests, window)
}

// Middleware applies store to every request not matched by skipper.
func Middleware(store Store, window time.Duration, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: "unable to identify client",
				Code:  "FORBIDDEN",
			}).SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", retryAfter)
			return echo.NewHTTPError(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Error: "too many requests from this IP, please try again later",
				Code:  "RATE_LIMITED",
			}).SetInternal(fmt.Errorf("rate limit exceeded for %s", identifier))
		},
	})
}
