package devidp

// Package devidp provides a config-driven, in-memory identity provider
// for local development and tests. It accepts any configured account and
// never talks to the network.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// Account is a single dev-mode credential.
type Account struct {
	Email    string
	Password string
}

// Config controls the dev provider.
type Config struct {
	// Accounts lists accepted credentials. At least one is required.
	Accounts []Account
}

// Provider implements ports.IdentityProvider and ports.ProviderVerifier
// entirely in memory.
type Provider struct {
	accounts map[string]string // email -> password

	mu      sync.Mutex
	current *domainauth.ProviderSession
	tokens  map[string]domainauth.ProviderUser // access token -> user
	events  chan domainauth.Event
}

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("devidp: at least one account is required")
	}
	accounts := make(map[string]string, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		if a.Email == "" {
			return nil, errors.New("devidp: account email is required")
		}
		accounts[strings.ToLower(a.Email)] = a.Password
	}
	return &Provider{
		accounts: accounts,
		tokens:   make(map[string]domainauth.ProviderUser),
		events:   make(chan domainauth.Event, 16),
	}, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (domainauth.ProviderSession, error) {
	want, ok := p.accounts[strings.ToLower(email)]
	if !ok || want != password {
		return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
	}
	return p.issue(email)
}

func (p *Provider) SignUp(_ context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error) {
	email := strings.ToLower(in.Email)
	if email == "" || in.Password == "" {
		return domainauth.ProviderSession{}, errors.New("devidp: email and password are required")
	}
	if _, exists := p.accounts[email]; exists {
		return domainauth.ProviderSession{}, errors.New("devidp: account already exists")
	}
	p.accounts[email] = in.Password
	return p.issue(email)
}

func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	delete(p.tokens, accessToken)
	p.current = nil
	p.mu.Unlock()
	p.emit(domainauth.Event{Kind: domainauth.EventSignedOut})
	return nil
}

func (p *Provider) GetSession(_ context.Context) (*domainauth.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	sess := *p.current
	return &sess, nil
}

func (p *Provider) GetUser(_ context.Context, accessToken string) (domainauth.ProviderUser, error) {
	p.mu.Lock()
	user, ok := p.tokens[accessToken]
	p.mu.Unlock()
	if !ok {
		return domainauth.ProviderUser{}, errors.New("devidp: unknown token")
	}
	return user, nil
}

func (p *Provider) Events() <-chan domainauth.Event {
	return p.events
}

func (p *Provider) issue(email string) (domainauth.ProviderSession, error) {
	access, err := randomToken()
	if err != nil {
		return domainauth.ProviderSession{}, err
	}
	refresh, err := randomToken()
	if err != nil {
		return domainauth.ProviderSession{}, err
	}

	user := domainauth.ProviderUser{ID: "dev-" + email, Email: email}
	sess := domainauth.ProviderSession{
		AccessToken:    access,
		RefreshToken:   refresh,
		ProviderUserID: user.ID,
	}

	p.mu.Lock()
	p.tokens[access] = user
	p.current = &sess
	p.mu.Unlock()

	p.emit(domainauth.Event{Kind: domainauth.EventSignedIn, Session: &sess})
	return sess, nil
}

func (p *Provider) emit(ev domainauth.Event) {
	select {
	case p.events <- ev:
	default:
	}
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("devidp: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
