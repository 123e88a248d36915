package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "default", cfg.Tenancy.DefaultTenantSlug)
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1"}, cfg.Tenancy.LocalHosts)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes())
	assert.Equal(t, time.Hour, cfg.PasswordReset.TTL())
	assert.Empty(t, cfg.Encryption.RetiredKeys)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ENCRYPTION_RETIRED_KEYS", "AGE-SECRET-KEY-1OLD,AGE-SECRET-KEY-1OLDER")
	t.Setenv("SETTINGS_CACHE_TTL_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Encryption.RetiredKeys, 2)
	assert.Equal(t, 30*time.Second, cfg.Settings.TTL())
}

func TestLoad_RejectsBadPurgeSchedule(t *testing.T) {
	t.Setenv("WORKER_RESET_PURGE_CRON", "every hour")

	_, err := Load()
	assert.ErrorContains(t, err, "WORKER_RESET_PURGE_CRON")
}
