package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SIGNING_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, devSigningKey, cfg.Auth.JWTSigningKey)
	assert.Equal(t, "admin@example.com", cfg.Admin.Email)
	assert.Equal(t, "Admin123!", cfg.Admin.Password)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "donorhub.audit", cfg.Audit.Topic)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DONORHUB_ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("DATABASE_URL", "postgres://donorhub@localhost/donorhub")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "postgres://donorhub@localhost/donorhub", cfg.Database.URL)
	assert.Equal(t, "prod-key", cfg.Auth.JWTSigningKey)
}

func TestFromEnv_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_RejectsMalformedDuration(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")

	_, err := FromEnv()
	require.Error(t, err)
}
