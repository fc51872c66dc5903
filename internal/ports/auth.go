package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service
// and internal/client.

import (
	"context"
	"errors"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
)

// ErrInvalidCredentials is returned by SignIn when the provider rejects
// the email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SignUpInput carries inputs for petitioner self-registration with the
// identity provider. Metadata is attached to the provider-side user record.
type SignUpInput struct {
	Email    string
	Password string
	Metadata map[string]string
}

// IdentityProvider wraps the external auth service of record. It owns the
// provider session lifecycle; the locally minted token is a separate,
// application-level concern.
type IdentityProvider interface {
	// SignIn exchanges credentials for a provider session.
	SignIn(ctx context.Context, email, password string) (domainauth.ProviderSession, error)

	// SignUp registers a new provider-side user. Used only for petitioner
	// self-registration.
	SignUp(ctx context.Context, in SignUpInput) (domainauth.ProviderSession, error)

	// SignOut invalidates the provider session. Best-effort: callers log
	// failures and proceed with local cleanup regardless.
	SignOut(ctx context.Context, accessToken string) error

	// GetSession returns the currently valid provider session, or nil when
	// the user is not signed in. Used once at application start.
	GetSession(ctx context.Context) (*domainauth.ProviderSession, error)

	// Events delivers asynchronous auth-state-change notifications.
	// Delivery order relative to application-initiated calls is not
	// guaranteed; consumers must be idempotent.
	Events() <-chan domainauth.Event
}

// ProviderVerifier validates a provider access token and resolves the
// provider-side user. This is the server-side half of the identity
// provider contract, used by the verification middleware.
type ProviderVerifier interface {
	GetUser(ctx context.Context, accessToken string) (domainauth.ProviderUser, error)
}

// SessionStore persists the client-side session triple across restarts.
// Save and Clear are atomic with respect to the three keys: a partial
// write must never leave a token present without a principal or vice versa.
type SessionStore interface {
	// Load returns the stored snapshot. The boolean is false when either
	// the token or the principal is absent (treated as logged out).
	Load(ctx context.Context) (domainauth.SessionSnapshot, bool, error)
	Save(ctx context.Context, snap domainauth.SessionSnapshot) error
	Clear(ctx context.Context) error
}

// PetitionerRecord carries the fields stored at petitioner registration.
// PasswordHash is kept for compatibility with legacy records; the
// identity provider remains the source of truth for credentials.
type PetitionerRecord struct {
	ProviderID   string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
}

// PetitionerRegistrar persists newly registered petitioners.
type PetitionerRegistrar interface {
	CreatePetitioner(ctx context.Context, rec PetitionerRecord) (domainauth.Principal, error)
}

// UserDirectory resolves application principals from a backing user store.
// The composite implementation probes constituent directories in a
// declared priority order; the first match fixes the role.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (domainauth.Principal, bool, error)
	FindByID(ctx context.Context, id string) (domainauth.Principal, bool, error)
}
