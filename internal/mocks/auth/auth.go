package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"strings"
	"sync"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider    = (*MockIdentityProvider)(nil)
	_ ports.ProviderVerifier    = (*MockProviderVerifier)(nil)
	_ ports.SessionStore        = (*MemorySessionStore)(nil)
	_ ports.UserDirectory       = (*MemoryDirectory)(nil)
	_ ports.PetitionerRegistrar = (*MemoryRegistrar)(nil)
)

// MockIdentityProvider simulates the identity provider for tests. Each
// method can be overridden per-test with a func field; unset fields fall
// back to a deterministic default keyed off the Accounts map.
type MockIdentityProvider struct {
	SignInFunc     func(ctx context.Context, email, password string) (domainauth.ProviderSession, error)
	SignUpFunc     func(ctx context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error)
	SignOutFunc    func(ctx context.Context, accessToken string) error
	GetSessionFunc func(ctx context.Context) (*domainauth.ProviderSession, error)

	// Accounts maps email -> password for the default SignIn behavior.
	Accounts map[string]string

	// SignOutCalls counts SignOut invocations regardless of override.
	SignOutCalls int

	events chan domainauth.Event
	once   sync.Once
}

// NewMockIdentityProvider creates a provider with a single test account.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		Accounts: map[string]string{"user@example.com": "secret"},
	}
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (domainauth.ProviderSession, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	want, ok := m.Accounts[strings.ToLower(email)]
	if !ok || want != password {
		return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
	}
	return domainauth.ProviderSession{
		AccessToken:    "access-" + email,
		RefreshToken:   "refresh-" + email,
		ProviderUserID: "prov-" + email,
	}, nil
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	return domainauth.ProviderSession{
		AccessToken:    "access-" + in.Email,
		RefreshToken:   "refresh-" + in.Email,
		ProviderUserID: "prov-" + in.Email,
	}, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	m.SignOutCalls++
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	m.Emit(domainauth.Event{Kind: domainauth.EventSignedOut})
	return nil
}

func (m *MockIdentityProvider) GetSession(ctx context.Context) (*domainauth.ProviderSession, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx)
	}
	return nil, nil
}

// Events returns the provider's auth-state-change stream.
func (m *MockIdentityProvider) Events() <-chan domainauth.Event {
	m.once.Do(func() { m.events = make(chan domainauth.Event, 16) })
	return m.events
}

// Emit pushes an event onto the stream; drops when no one is listening.
func (m *MockIdentityProvider) Emit(ev domainauth.Event) {
	m.once.Do(func() { m.events = make(chan domainauth.Event, 16) })
	select {
	case m.events <- ev:
	default:
	}
}

// MockProviderVerifier resolves provider access tokens from a fixed map.
type MockProviderVerifier struct {
	// Users maps accessToken -> provider user.
	Users map[string]domainauth.ProviderUser

	// Calls counts GetUser invocations.
	Calls int
}

func (m *MockProviderVerifier) GetUser(_ context.Context, accessToken string) (domainauth.ProviderUser, error) {
	m.Calls++
	u, ok := m.Users[accessToken]
	if !ok {
		return domainauth.ProviderUser{}, fmt.Errorf("unknown access token")
	}
	return u, nil
}

// MemorySessionStore is an in-memory ports.SessionStore.
type MemorySessionStore struct {
	mu   sync.Mutex
	snap domainauth.SessionSnapshot
	set  bool

	// FailSave, when set, is returned by Save.
	FailSave error
}

func (s *MemorySessionStore) Load(context.Context) (domainauth.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set || !s.snap.Valid() {
		return domainauth.SessionSnapshot{}, false, nil
	}
	return s.snap, true, nil
}

func (s *MemorySessionStore) Save(_ context.Context, snap domainauth.SessionSnapshot) error {
	if s.FailSave != nil {
		return s.FailSave
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.set = true
	return nil
}

func (s *MemorySessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = domainauth.SessionSnapshot{}
	s.set = false
	return nil
}

// MemoryDirectory is a map-backed ports.UserDirectory for one role store.
type MemoryDirectory struct {
	mu         sync.Mutex
	principals []domainauth.Principal
}

// Put adds or replaces a principal keyed by ID.
func (d *MemoryDirectory) Put(p domainauth.Principal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.principals {
		if d.principals[i].ID == p.ID {
			d.principals[i] = p
			return
		}
	}
	d.principals = append(d.principals, p)
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (domainauth.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if strings.EqualFold(p.Email, email) {
			return p, true, nil
		}
	}
	return domainauth.Principal{}, false, nil
}

func (d *MemoryDirectory) FindByID(_ context.Context, id string) (domainauth.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if p.ID == id {
			return p, true, nil
		}
	}
	return domainauth.Principal{}, false, nil
}

// MemoryRegistrar stores created petitioners in a MemoryDirectory.
type MemoryRegistrar struct {
	Directory *MemoryDirectory
	nextID    int
}

func (r *MemoryRegistrar) CreatePetitioner(_ context.Context, rec ports.PetitionerRecord) (domainauth.Principal, error) {
	r.nextID++
	p := domainauth.Principal{
		ID:         fmt.Sprintf("pet-%d", r.nextID),
		ProviderID: rec.ProviderID,
		Role:       domainauth.RolePetitioner,
		Email:      rec.Email,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		Phone:      rec.Phone,
	}
	if r.Directory != nil {
		r.Directory.Put(p)
	}
	return p, nil
}
