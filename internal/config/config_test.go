package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverMemory},
		Auth: AuthConfig{
			AccessSecret:    "access",
			RefreshSecret:   "refresh",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 168 * time.Hour,
			EncryptionKey:   base64.StdEncoding.EncodeToString(make([]byte, 32)),
		},
		Upstream: UpstreamConfig{Timeout: 30 * time.Second, MaxPageSize: 250, DefaultPageSize: 50},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 250, cfg.Upstream.MaxPageSize)
	assert.Equal(t, 50, cfg.Upstream.DefaultPageSize)
	assert.Equal(t, ".myshopify.com", cfg.Upstream.DomainSuffix)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: mongo
upstream:
  timeout: 5s
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_ACCESS_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "from-env", cfg.Auth.AccessSecret)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.Auth.AccessSecret = "" }},
		{"shared secret", func(c *Config) { c.Auth.RefreshSecret = c.Auth.AccessSecret }},
		{"zero ttl", func(c *Config) { c.Auth.AccessTokenTTL = 0 }},
		{"key not base64", func(c *Config) { c.Auth.EncryptionKey = "***" }},
		{"key wrong size", func(c *Config) { c.Auth.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 10)) }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"zero upstream timeout", func(c *Config) { c.Upstream.Timeout = 0 }},
		{"default page over max", func(c *Config) { c.Upstream.DefaultPageSize = 500 }},
		{"max page over upstream limit", func(c *Config) { c.Upstream.MaxPageSize = 1000 }},
		{"zero max page", func(c *Config) { c.Upstream.MaxPageSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
