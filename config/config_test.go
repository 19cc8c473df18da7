package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	for _, k := range []string{"PORT", "DATABASE_URL", "STORE_DRIVER", "JWT_EXPIRY", "SERVICE_TIMEOUT",
		"REGISTRATION_BLOCK_AFTER_START", "CANCEL_BLOCK_AFTER_START", "RATE_LIMIT_PER_MINUTE",
		"ADMIN_IDENTITY_KEYS", "MAIL_PROVIDER", "AMQP_EXCHANGE", "TRUST_IDENTITY_HEADER"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5*time.Second, cfg.ServiceTimeout)
	assert.True(t, cfg.RegistrationBlockAfterStart)
	assert.False(t, cfg.CancelBlockAfterStart)
	assert.False(t, cfg.TrustIdentityHeader)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, "registrations", cfg.AMQPExchange)
	assert.Equal(t, "noop", cfg.Mail.Provider)
	assert.Empty(t, cfg.AdminIdentityKeys)
	assert.Contains(t, cfg.DBUrl, "eventsignup")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("SERVICE_TIMEOUT", "not-a-duration")
	t.Setenv("REGISTRATION_BLOCK_AFTER_START", "false")
	t.Setenv("CANCEL_BLOCK_AFTER_START", "yes please")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("ADMIN_IDENTITY_KEYS", " U1, ,U2 ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5*time.Second, cfg.ServiceTimeout)
	assert.False(t, cfg.RegistrationBlockAfterStart)
	assert.False(t, cfg.CancelBlockAfterStart)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"U1", "U2"}, cfg.AdminIdentityKeys)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_UnknownDriverFallsBack(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
}
