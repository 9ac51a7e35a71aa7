package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryBackendDefaults(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LedgerBackendMemory, cfg.LedgerBackend)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Relay.Interval)
	assert.Equal(t, 100, cfg.Relay.BatchSize)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.Program.Enabled())
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "sqlite")

	_, err := Load()
	assert.ErrorContains(t, err, "LEDGER_BACKEND")
}

func TestLoad_Auth0MustBePaired(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("AUTH0_DOMAIN", "bazaar.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH0_DOMAIN")
}

func TestLoad_ProgramBootstrap(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("PROGRAM_MINT", "mint")
	t.Setenv("PROGRAM_AUTHORITY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "PROGRAM_AUTHORITY")

	t.Setenv("PROGRAM_AUTHORITY", "auth")
	t.Setenv("PROGRAM_TOKEN_PROGRAM", "prog")
	t.Setenv("PROGRAM_DECIMALS", "9")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Program.Enabled())
	assert.Equal(t, 9, cfg.Program.Decimals)
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RELAY_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "bazaar.settlements", cfg.Kafka.Topic)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.Interval)
}
