package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rateLimitedApp(client redis.Cmdable, cfg RateLimitConfig) *fiber.App {
	app := fiber.New()
	app.Use(RequestID())
	app.Post("/run", NewRateLimitMiddleware(client, zap.NewNop(), cfg).Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimit_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	app := rateLimitedApp(client, RateLimitConfig{Max: 1, Window: time.Minute})
	for range 3 {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/run", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestNewRateLimitMiddleware_Defaults(t *testing.T) {
	m := NewRateLimitMiddleware(nil, zap.NewNop(), RateLimitConfig{Max: 5})
	assert.Equal(t, 5, m.config.Max)
	assert.Equal(t, time.Minute, m.config.Window)
	assert.Equal(t, "ratelimit", m.config.Prefix)
	assert.NotNil(t, m.config.KeyGenerator)
	assert.NotNil(t, m.config.LimitReached)
}

func TestRateLimit_Integration(t *testing.T) {
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("Skipping integration test: REDIS_TEST_HOST not set")
	}
	client := redis.NewClient(&redis.Options{Addr: host + ":6379", DB: 15})
	t.Cleanup(func() { _ = client.Close() })

	prefix := fmt.Sprintf("ratelimit:test:%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), prefix+":0.0.0.0") })

	app := rateLimitedApp(client, RateLimitConfig{Max: 2, Window: time.Minute, Prefix: prefix})

	for i := range 2 {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/run", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, fmt.Sprint(1-i), resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/run", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}
