package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"CHAINLEAD_ADDR", "REDIS_URL", "KAFKA_BROKERS", "DEED_CACHE_TTL", "CORS_ALLOWED_ORIGINS", "OUTBOUND_BREAKER_FAILURES", "OUTBOUND_BREAKER_COOLDOWN"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Empty(t, cfg.Redis.URL)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Chains.DeedCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.PropertyRecords.Timeout)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, 5, cfg.Outbound.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Outbound.BreakerCooldown)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CHAINLEAD_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DEED_CACHE_TTL", "0s")
	t.Setenv("OUTBOUND_RPS", "2.5")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("PERSON_SEARCH_TIMEOUT", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Zero(t, cfg.Chains.DeedCacheTTL)
	assert.Equal(t, 2.5, cfg.Outbound.RequestsPerSecond)
	assert.False(t, cfg.Database.Migrate)
	assert.Equal(t, 10*time.Second, cfg.PersonSearch.Timeout, "invalid durations fall back to the default")
}
