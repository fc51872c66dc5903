package config

import (
	"fmt"
	"strings"
	"time"
)

// IdPMode selects which identity provider adapter the server runs with.
type IdPMode string

const (
	// IdPModeRest talks to a GoTrue-style REST identity provider.
	IdPModeRest IdPMode = "rest"
	// IdPModeOIDC verifies provider tokens locally via OIDC discovery.
	IdPModeOIDC IdPMode = "oidc"
	// IdPModeMock uses the in-memory dev provider (development only).
	IdPModeMock IdPMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdPMode.
func (m *IdPMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "rest", "oidc", "mock":
		*m = IdPMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdPMode: %q (valid options: rest, oidc, mock)", v)
	}
}

// ProviderConfig contains the REST identity provider connection settings.
type ProviderConfig struct {
	// BaseURL is the provider's auth endpoint root, e.g.
	// "https://xyz.supabase.co/auth/v1".
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// OIDCConfig contains OIDC-discovery verification settings (IDP_MODE=oidc).
type OIDCConfig struct {
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// MockIdPConfig controls the in-memory dev provider (IDP_MODE=mock).
// Accounts is a list of email:password pairs.
type MockIdPConfig struct {
	Accounts []string `env:"ACCOUNTS" envDefault:"dev@example.com:devpass" envSeparator:";"`
}

// TokenConfig controls the locally minted session token.
type TokenConfig struct {
	// Secret signs session tokens. Required.
	Secret string `env:"SECRET,required"`

	// Validity is the lifetime of a minted token.
	Validity time.Duration `env:"VALIDITY" envDefault:"24h"`

	// VerifyCacheTTL bounds how long a provider-token verification is
	// served from cache.
	VerifyCacheTTL time.Duration `env:"VERIFY_CACHE_TTL" envDefault:"1m"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider adapter to use.
	Mode IdPMode `env:"IDP_MODE" envDefault:"rest"`

	// Provider configuration (used when Mode=rest).
	Provider ProviderConfig `envPrefix:"IDP_"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Mock provider configuration (used when Mode=mock).
	Mock MockIdPConfig `envPrefix:"MOCK_IDP_"`

	// Token configuration for the locally minted session token.
	Token TokenConfig `envPrefix:"JWT_"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Token.Validity <= 0 {
		c.Token.Validity = 24 * time.Hour
	}
	if c.Token.VerifyCacheTTL <= 0 {
		c.Token.VerifyCacheTTL = time.Minute
	}
}
