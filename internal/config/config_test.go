package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "DB_DRIVER", "DATABASE_URL", "JWT_EXPIRY", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "FRONTEND_URL", "GEOCODE_ALLOW_DEGRADED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.GeocodeAllowDegraded)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("FRONTEND_URL", "https://a.example.com, https://b.example.com,")
	t.Setenv("RATE_LIMIT_MAX", "not-a-number")
	t.Setenv("JWT_EXPIRY", "24h")
	t.Setenv("GEOCODE_ALLOW_DEGRADED", "false")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.GeocodeAllowDegraded)
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		DBDriver:   "postgres",
		DBHost:     "db",
		DBPort:     5432,
		DBUser:     "app",
		DBPassword: "pw",
		DBName:     "weather",
		DBSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=weather sslmode=disable TimeZone=UTC", cfg.DSN())
	assert.Equal(t, "postgres://app:pw@db:5432/weather?sslmode=disable", cfg.MigrationURL())

	cfg.DBDriver = "mysql"
	cfg.DBPort = 3306
	assert.Equal(t, "app:pw@tcp(db:3306)/weather?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())

	cfg.DBURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
	assert.Equal(t, "postgres://override", cfg.MigrationURL())
}
