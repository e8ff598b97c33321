package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RESTAURANTS_SERVICE", "http://restaurants:3002")
	t.Setenv("DB_NAME", "")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	for _, k := range []string{"APP_PORT", "RESTAURANTS_TIMEOUT", "ENRICH_MATCH", "STRICT_RESTAURANT_SCOPE", "EVENTS_BROKER", "EVENTS_TOPIC"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "reservations.db", cfg.DBName)
	assert.Equal(t, "3004", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RestaurantsTimeout)
	assert.Equal(t, "user_id", cfg.EnrichMatch)
	assert.True(t, cfg.StrictRestaurantScope)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "none", cfg.Events.Broker)
	assert.Equal(t, "reservation.events", cfg.Events.Topic)
}

func TestLoadNetworkDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RESTAURANTS_SERVICE", "http://restaurants:3002")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "reservations")
	t.Setenv("STRICT_RESTAURANT_SCOPE", "off")
	t.Setenv("ENRICH_MATCH", "RESTAURANT_ID")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "app", cfg.DBUser)
	assert.Equal(t, "reservations", cfg.DBName)
	assert.False(t, cfg.StrictRestaurantScope)
	assert.Equal(t, "restaurant_id", cfg.EnrichMatch)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.Events.RabbitURL)
}

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRedisConfigPrefersHostPort(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadRedisConfig()

	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "soon")

	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, time.Minute, envDur("X_DUR", time.Minute))
}
