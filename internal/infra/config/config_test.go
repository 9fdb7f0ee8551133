package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToMemoryStorage(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadRequiresMongoURIForMongoStorage(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("S3_USE_SSL", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
