package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherlog/internal/cache"
	apperrors "weatherlog/internal/errors"
)

func TestMemoryStore_BudgetPerIdentifier(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(3, time.Minute)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}

	allowed, _ := store.Allow("10.0.0.1")
	assert.False(t, allowed)

	allowed, _ = store.Allow("10.0.0.2")
	assert.True(t, allowed, "other addresses keep their own budget")

	now = now.Add(time.Minute - time.Second)
	allowed, _ = store.Allow("10.0.0.1")
	assert.False(t, allowed, "hits stay counted until a full window has passed")

	now = now.Add(time.Second)
	allowed, _ = store.Allow("10.0.0.1")
	assert.True(t, allowed, "budget is back once the oldest hits leave the window")
}

func TestMemoryStore_SteadyTrafficNeverExceedsWindowBudget(t *testing.T) {
	const (
		max    = 100
		window = 15 * time.Minute
	)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(max, window)
	store.now = func() time.Time { return now }

	allowed := 0
	for i := 0; i < int(window/time.Second); i++ {
		ok, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		if ok {
			allowed++
		}
		now = now.Add(time.Second)
	}
	assert.Equal(t, max, allowed)
}

func TestMemoryStore_SlidingWindowAcrossBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(2, time.Minute)
	store.now = func() time.Time { return now }

	ok, _ := store.Allow("a")
	assert.True(t, ok)

	now = now.Add(50 * time.Second)
	ok, _ = store.Allow("a")
	assert.True(t, ok)

	// A fixed window starting at the first hit would reset here.
	now = now.Add(15 * time.Second)
	ok, _ = store.Allow("a")
	assert.True(t, ok, "first hit has left the window")
	ok, _ = store.Allow("a")
	assert.False(t, ok, "second hit is still inside the window")
}

func TestMemoryStore_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(5, time.Minute)
	store.now = func() time.Time { return now }

	_, _ = store.Allow("a")
	_, _ = store.Allow("b")
	assert.Len(t, store.visitors, 2)

	now = now.Add(2 * time.Minute)
	_, _ = store.Allow("c")
	assert.Len(t, store.visitors, 1)
}

func TestNewStore_FallsBackToMemory(t *testing.T) {
	store := NewStore(cache.New("", "", 0), 10, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func newTestRedisCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisStore_EnforcesBudget(t *testing.T) {
	client, mr := newTestRedisCache(t)
	store := NewRedisStore(client, 2, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var results []bool
	for i := 0; i < 3; i++ {
		allowed, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		results = append(results, allowed)
	}
	assert.Equal(t, []bool{true, true, false}, results)

	allowed, err := store.Allow("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "other addresses keep their own budget")

	assert.True(t, mr.Exists(redisKeyPrefix+"10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"10.0.0.1"))

	mr.FastForward(time.Minute)
	allowed, err = store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "counter expires with the window")
}

func TestNewStore_UsesRedisWhenEnabled(t *testing.T) {
	client, _ := newTestRedisCache(t)
	store := NewStore(client, 10, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, ok := store.(*RedisStore)
	assert.True(t, ok)
}

func TestRedisStore_FailsOpen(t *testing.T) {
	store := NewRedisStore(cache.New("", "", 0), 1, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < 3; i++ {
		allowed, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperrors.NewHTTPErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	e.Use(Middleware(NewMemoryStore(2, time.Hour), time.Hour, nil))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
			assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
