package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("ENV", EnvDevelopment)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("EXPORTS_SIGNED_URL_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.Grievance.PriorityAgingEvery)
}

func TestLoadProductionRejectsDefaultSecrets(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("EXPORTS_SIGNED_URL_SECRET", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrDefaultSecret)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-long-production-signing-key")
	_, err = Load()
	require.ErrorIs(t, err, ErrDefaultSecret)
	assert.Contains(t, err.Error(), "EXPORTS_SIGNED_URL_SECRET")

	t.Setenv("EXPORTS_SIGNED_URL_SECRET", "another-production-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a-long-production-signing-key", cfg.JWT.Secret)
}
