package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/theervu-kaanal/grievance-api/config"
	"github.com/theervu-kaanal/grievance-api/internal/adapters/devidp"
	"github.com/theervu-kaanal/grievance-api/internal/adapters/gotrue"
	"github.com/theervu-kaanal/grievance-api/internal/adapters/oidcidp"
	redisadapter "github.com/theervu-kaanal/grievance-api/internal/adapters/redis"
	"github.com/theervu-kaanal/grievance-api/internal/data"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"github.com/theervu-kaanal/grievance-api/internal/service"
	"github.com/theervu-kaanal/grievance-api/internal/token"
)

// AuthStackConfig contains dependencies for building the auth stack.
type AuthStackConfig struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// AuthStack groups the assembled auth components handed to the HTTP layer.
type AuthStack struct {
	Auth      *service.AuthService
	Directory *service.CompositeDirectory
	Verifier  ports.ProviderVerifier
	Provider  ports.IdentityProvider
}

// BuildAuthStack assembles the identity provider, token verifier, user
// directory, and auth service from configuration. The provider selection
// follows cfg.Config.Auth.Mode:
//
//   - rest: the REST provider handles both sign-in and token verification.
//   - oidc: the REST provider handles sign-in; access tokens are verified
//     locally against the issuer's JWKS.
//   - mock: an in-memory provider handles both (development only).
//
// Provider-token verification is always fronted by a short-TTL Redis cache.
func BuildAuthStack(cfg AuthStackConfig) (*AuthStack, error) {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	provider, verifier, err := buildIdentityProvider(appCfg)
	if err != nil {
		return nil, err
	}

	cached, err := redisadapter.NewVerifyCache(redisadapter.VerifyCacheConfig{
		Inner:  verifier,
		Client: cfg.Redis,
		TTL:    appCfg.Auth.Token.VerifyCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("build verify cache: %w", err)
	}

	petitioners := data.NewPetitionerRepo(cfg.DB)
	officials := data.NewOfficialRepo(cfg.DB)
	admins := data.NewAdminRepo(cfg.DB)
	directory := service.NewCompositeDirectory(petitioners, officials, admins)

	minter, err := token.NewMinter(token.MinterConfig{
		Secret:   appCfg.Auth.Token.Secret,
		Validity: appCfg.Auth.Token.Validity,
	})
	if err != nil {
		return nil, fmt.Errorf("build token minter: %w", err)
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider:  provider,
		Directory: directory,
		Registrar: petitioners,
		Minter:    minter,
	})

	if cfg.Logger != nil {
		cfg.Logger.Info("auth stack ready", "idp_mode", string(appCfg.Auth.Mode))
	}

	return &AuthStack{
		Auth:      auth,
		Directory: directory,
		Verifier:  cached,
		Provider:  provider,
	}, nil
}

//nolint:ireturn // the concrete adapter depends on the configured mode.
func buildIdentityProvider(cfg *config.AppConfig) (ports.IdentityProvider, ports.ProviderVerifier, error) {
	switch cfg.Auth.Mode {
	case config.IdPModeMock:
		provider, err := devidp.NewProvider(devidp.Config{
			Accounts: parseMockAccounts(cfg.Auth.Mock.Accounts),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build mock identity provider: %w", err)
		}
		return provider, provider, nil

	case config.IdPModeOIDC:
		provider, err := newRestProvider(cfg)
		if err != nil {
			return nil, nil, err
		}
		verifier, err := oidcidp.NewVerifier(oidcidp.Config{
			DiscoveryURL: cfg.Auth.OIDC.DiscoveryURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build oidc verifier: %w", err)
		}
		return provider, verifier, nil

	case config.IdPModeRest, "":
		provider, err := newRestProvider(cfg)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider, nil

	default:
		return nil, nil, fmt.Errorf("unknown identity provider mode: %q", cfg.Auth.Mode)
	}
}

func newRestProvider(cfg *config.AppConfig) (*gotrue.Provider, error) {
	provider, err := gotrue.NewProvider(gotrue.Config{
		BaseURL: cfg.Auth.Provider.BaseURL,
		APIKey:  cfg.Auth.Provider.APIKey,
		Timeout: cfg.Auth.Provider.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build rest identity provider: %w", err)
	}
	return provider, nil
}

// parseMockAccounts turns "email:password" pairs into dev provider
// accounts. Malformed entries are skipped.
func parseMockAccounts(raw []string) []devidp.Account {
	accounts := make([]devidp.Account, 0, len(raw))
	for _, entry := range raw {
		email, password, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || email == "" || password == "" {
			continue
		}
		accounts = append(accounts, devidp.Account{Email: email, Password: password})
	}
	return accounts
}
