package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "strings"

// Role represents an application's authorization role.
// Keep string form for easy persistence and wire serialization.
// Valid values are defined as constants below.
type Role string

const (
	RolePetitioner Role = "petitioner"
	RoleOfficial   Role = "official"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes a raw role string to a known Role.
// Roles are case-normalized to lowercase internally; title-casing is a
// display concern only (see DisplayRole).
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePetitioner:
		return RolePetitioner, true
	case RoleOfficial:
		return RoleOfficial, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// DisplayRole returns the display form of a role: first letter uppercase,
// remainder lowercase ("petitioner" -> "Petitioner").
func DisplayRole(r Role) string {
	s := strings.ToLower(string(r))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Jurisdiction groups the locality fields that scope an official's
// authority. Exactly one group is populated for officials; all fields are
// empty for petitioners and admins.
type Jurisdiction struct {
	Department string `json:"department,omitempty"`
	Taluk      string `json:"taluk,omitempty"`
	District   string `json:"district,omitempty"`
	Division   string `json:"division,omitempty"`
}

// IsZero reports whether no jurisdiction field is set.
func (j Jurisdiction) IsZero() bool {
	return j.Department == "" && j.Taluk == "" && j.District == "" && j.Division == ""
}

// Principal is the authenticated identity and its authorization-relevant
// attributes. Role is set once at registration/login and never blank.
type Principal struct {
	ID         string `json:"id"`
	ProviderID string `json:"supabaseId,omitempty"`
	Role       Role   `json:"role"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Jurisdiction
}

// Name returns the principal's display name: "First Last" when both parts
// are present, otherwise the local part of the email address.
func (p Principal) Name() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// ProviderSession is the identity provider's session record: the provider
// is the source of truth for "is the user signed in at all", while the
// locally minted token carries the application-specific claims.
type ProviderSession struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	ProviderUserID string `json:"provider_user_id"`
}

// ProviderUser is the provider-verified identity used by the server-side
// verification middleware. Adapters map provider-specific claims into
// this shape.
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionSnapshot is the triple held in durable client-side storage so a
// restart does not require re-authentication. If Principal is present a
// token must also be present; absence of either means "logged out".
type SessionSnapshot struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Principal    Principal `json:"user"`
}

// Valid reports whether the snapshot represents a logged-in session.
func (s SessionSnapshot) Valid() bool {
	return s.Token != "" && s.Principal.ID != ""
}

// EventKind identifies an asynchronous auth-state-change notification
// from the identity provider.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is a single auth-state-change notification. Session is set for
// SIGNED_IN and TOKEN_REFRESHED events.
type Event struct {
	Kind    EventKind
	Session *ProviderSession
}
