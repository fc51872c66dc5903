package gotrue

// Package gotrue adapts a GoTrue-style identity provider REST API
// (sign-in, sign-up, sign-out, get-user) to the IdentityProvider and
// ProviderVerifier ports. The provider owns credential verification and
// its own session lifecycle; application claims live in the local token.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// eventBuffer bounds the auth-state-change channel. Events are dropped,
// not blocked on, when the consumer falls behind; handlers are idempotent
// so a dropped TOKEN_REFRESHED only delays re-caching.
const eventBuffer = 16

// Config holds configuration for the GoTrue provider adapter.
type Config struct {
	// BaseURL is the provider root, e.g. "https://xyz.supabase.co/auth/v1".
	BaseURL string
	// APIKey is the public (anon) API key sent on every request.
	APIKey string
	// RefreshToken, when set, seeds session restoration at startup
	// (GetSession exchanges it for a fresh provider session).
	RefreshToken string
	// Timeout for provider calls. Defaults to 15s.
	Timeout time.Duration
	// Client is optional; defaults to a timeout-bound http.Client.
	Client *http.Client
}

// Provider implements ports.IdentityProvider and ports.ProviderVerifier
// against a GoTrue-style REST API.
type Provider struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	events       chan domainauth.Event
	mu           sync.Mutex
	current      *domainauth.ProviderSession
	refreshToken string
}

// NewProvider constructs a Provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gotrue: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gotrue: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Provider{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		client:       hc,
		events:       make(chan domainauth.Event, eventBuffer),
		refreshToken: cfg.RefreshToken,
	}, nil
}

// sessionResponse is the provider's token-grant response shape.
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// errorResponse is the provider's error body shape.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"msg"`
}

func (e errorResponse) message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

// SignIn exchanges credentials for a provider session and announces
// SIGNED_IN on the event stream.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.ProviderSession, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	err := p.post(ctx, "/token?grant_type=password", postParams{Body: body, Out: &resp})
	if err != nil {
		return domainauth.ProviderSession{}, err
	}
	if resp.AccessToken == "" {
		return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
	}

	sess := domainauth.ProviderSession{
		AccessToken:    resp.AccessToken,
		RefreshToken:   resp.RefreshToken,
		ProviderUserID: resp.User.ID,
	}
	p.setSession(sess)
	p.emit(domainauth.Event{Kind: domainauth.EventSignedIn, Session: &sess})
	return sess, nil
}

// SignUp registers a new provider-side user. Metadata is forwarded as the
// provider's user data payload.
func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error) {
	body := map[string]any{"email": in.Email, "password": in.Password}
	if len(in.Metadata) > 0 {
		body["data"] = in.Metadata
	}

	var resp sessionResponse
	if err := p.post(ctx, "/signup", postParams{Body: body, Out: &resp}); err != nil {
		return domainauth.ProviderSession{}, err
	}

	sess := domainauth.ProviderSession{
		AccessToken:    resp.AccessToken,
		RefreshToken:   resp.RefreshToken,
		ProviderUserID: resp.User.ID,
	}
	if sess.AccessToken != "" {
		p.setSession(sess)
		p.emit(domainauth.Event{Kind: domainauth.EventSignedIn, Session: &sess})
	}
	return sess, nil
}

// SignOut revokes the provider session. Errors are returned for logging
// only; callers always proceed with local cleanup.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	err := p.post(ctx, "/logout", postParams{Bearer: accessToken})
	p.clearSession()
	p.emit(domainauth.Event{Kind: domainauth.EventSignedOut})
	return err
}

// GetSession returns the current provider session. With no in-memory
// session it attempts a refresh-token grant (session restoration after a
// restart); a TOKEN_REFRESHED event is emitted when that succeeds.
// Returns (nil, nil) when the user is simply not signed in.
func (p *Provider) GetSession(ctx context.Context) (*domainauth.ProviderSession, error) {
	p.mu.Lock()
	current := p.current
	refresh := p.refreshToken
	p.mu.Unlock()

	if current != nil {
		sess := *current
		return &sess, nil
	}
	if refresh == "" {
		return nil, nil
	}

	var resp sessionResponse
	err := p.post(ctx, "/token?grant_type=refresh_token", postParams{
		Body: map[string]string{"refresh_token": refresh},
		Out:  &resp,
	})
	if err != nil || resp.AccessToken == "" {
		// A stale refresh token is "not signed in", not a hard failure.
		return nil, nil
	}

	sess := domainauth.ProviderSession{
		AccessToken:    resp.AccessToken,
		RefreshToken:   resp.RefreshToken,
		ProviderUserID: resp.User.ID,
	}
	p.setSession(sess)
	p.emit(domainauth.Event{Kind: domainauth.EventTokenRefreshed, Session: &sess})
	return &sess, nil
}

// GetUser validates an access token with the provider and returns the
// provider-side user. Server-side path used by the verification middleware.
func (p *Provider) GetUser(ctx context.Context, accessToken string) (domainauth.ProviderUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return domainauth.ProviderUser{}, fmt.Errorf("build request: %w", err)
	}
	p.decorate(req, accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return domainauth.ProviderUser{}, fmt.Errorf("provider get user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domainauth.ProviderUser{}, fmt.Errorf("provider rejected token: status %d", resp.StatusCode)
	}

	var user domainauth.ProviderUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domainauth.ProviderUser{}, fmt.Errorf("decode provider user: %w", err)
	}
	if user.ID == "" {
		return domainauth.ProviderUser{}, errors.New("provider returned no user")
	}
	return user, nil
}

// Events returns the auth-state-change stream.
func (p *Provider) Events() <-chan domainauth.Event {
	return p.events
}

// postParams groups the optional parts of a provider POST.
type postParams struct {
	Body   any
	Out    any
	Bearer string
}

func (p *Provider) post(ctx context.Context, path string, params postParams) error {
	var reader io.Reader
	if params.Body != nil {
		payload, err := json.Marshal(params.Body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	p.decorate(req, params.Bearer)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var errBody errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ports.ErrInvalidCredentials, errBody.message())
		}
		return fmt.Errorf("provider error (status %d): %s", resp.StatusCode, errBody.message())
	}

	if params.Out != nil {
		if err := json.NewDecoder(resp.Body).Decode(params.Out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}

func (p *Provider) decorate(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

func (p *Provider) setSession(sess domainauth.ProviderSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &sess
	if sess.RefreshToken != "" {
		p.refreshToken = sess.RefreshToken
	}
}

func (p *Provider) clearSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.refreshToken = ""
}

// emit delivers an event without blocking; the channel buffer absorbs
// bursts and overflow is dropped.
func (p *Provider) emit(ev domainauth.Event) {
	select {
	case p.events <- ev:
	default:
	}
}
