package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.URI)
	assert.Equal(t, IdPModeRest, cfg.Auth.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Token.Validity)
	assert.Equal(t, time.Minute, cfg.Auth.Token.VerifyCacheTTL)
	assert.False(t, cfg.IsDev)
}

func TestAppConfig_RequiresTokenSecret(t *testing.T) {
	var cfg AppConfig
	assert.Error(t, env.Parse(&cfg))
}

func TestIdPMode_UnmarshalText(t *testing.T) {
	var m IdPMode
	require.NoError(t, m.UnmarshalText([]byte("OIDC")))
	assert.Equal(t, IdPModeOIDC, m)

	assert.Error(t, m.UnmarshalText([]byte("saml")))
}

func TestAuthConfig_SanitizeTrimsBaseURL(t *testing.T) {
	c := AuthConfig{Provider: ProviderConfig{BaseURL: " https://idp.example.com/auth/v1/ "}}
	c.Sanitize()
	assert.Equal(t, "https://idp.example.com/auth/v1", c.Provider.BaseURL)
	assert.Equal(t, 10*time.Second, c.Provider.Timeout)
}

func TestAppConfig_DevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}
