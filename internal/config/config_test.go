package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.False(t, cfg.AuthEnabled())
	assert.NotEmpty(t, cfg.AuditLogPath)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []byte("s3cret"), cfg.Secret())
}

func TestConfig_AllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: " http://a.test, ,http://b.test "}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
	assert.Empty(t, (&Config{}).AllowedOrigins())
}

func TestConfig_Secret(t *testing.T) {
	assert.NotEmpty(t, (&Config{Env: "development"}).Secret())
	assert.Panics(t, func() { (&Config{Env: "production"}).Secret() })
}
