package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("RATE_LIMIT_RPM", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultCurrency, cfg.DefaultCurrency)
	assert.Equal(t, DefaultRPM, cfg.RateLimitRPM)
	assert.Equal(t, DefaultLogFmt, cfg.LogFormat)
	assert.NotEmpty(t, cfg.JWTSecret, "dev secret is filled in")
	assert.True(t, cfg.IsDevelopment())
}

func TestValidate_ProductionRequiresSecrets(t *testing.T) {
	cfg := &Config{Env: "production"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg = &Config{Env: "production", JWTSecret: "s3cret"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOTSTRAP_ADMIN_PASSWORD")

	cfg = &Config{Env: "production", JWTSecret: "s3cret", BootstrapPass: "p"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TokenTTLFallback(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHours: -1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTLHours)
}
