package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/messenger?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "messenger", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, "attachments", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Storage.StoreTimeout)
	assert.Equal(t, "memory", cfg.Bus.Broker)
	assert.Equal(t, 1024, cfg.Bus.QueueSize)
	assert.Equal(t, 120, cfg.SendRatePerMinute)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "unset-below")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_KafkaNeedsBrokers(t *testing.T) {
	setRequired(t)
	t.Setenv("BUS_BROKER", "kafka")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")

	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Bus.KafkaBrokers)
}

func TestLoad_UnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "ftp")

	_, err := Load()
	assert.Error(t, err)
}
