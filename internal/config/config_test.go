package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 72*time.Hour, cfg.Escrow.ReviewWindow)
	assert.Equal(t, 1, cfg.Escrow.RevisionLimit)
	assert.Equal(t, 48*time.Hour, cfg.Escrow.EarningsHold)
	assert.Equal(t, "10", cfg.Escrow.MinWithdrawal.String())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ORDER_REVIEW_WINDOW", "24h")
	t.Setenv("ORDER_REVISION_LIMIT", "3")
	t.Setenv("MIN_WITHDRAWAL", "25.50")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Escrow.ReviewWindow)
	assert.Equal(t, 3, cfg.Escrow.RevisionLimit)
	assert.Equal(t, "25.5", cfg.Escrow.MinWithdrawal.String())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_ProductionRequiresOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	_, err := Load()
	assert.ErrorContains(t, err, "CORS_ALLOWED_ORIGINS")
}

func TestLoad_BadMinWithdrawal(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MIN_WITHDRAWAL", "ten")

	_, err := Load()
	assert.Error(t, err)
}
