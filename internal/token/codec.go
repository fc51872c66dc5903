package token

// Package token implements the locally issued session token: an HS256 JWT
// carrying the principal id, role, and jurisdiction claims. Decode is the
// client-side advisory parse (no signature check); Minter owns the
// server-side mint/verify path.

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
)

// DefaultExpiryWarningThreshold is how close to expiry a token must be
// before the session manager raises the expiry warning.
const DefaultExpiryWarningThreshold = 5 * time.Minute

var (
	// ErrMalformedToken is returned when the token does not have the
	// three-segment structure or its payload is not valid JSON.
	ErrMalformedToken = errors.New("malformed token")
	// ErrMissingClaims is returned when a structurally valid token lacks
	// the id or role claim.
	ErrMissingClaims = errors.New("token missing required claims")
	// ErrTokenExpired is returned by Verify when the signature is valid
	// but the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")
	// ErrInvalidToken is returned by Verify for any failure other than
	// expiry (bad signature, wrong algorithm, garbage input).
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the application claims carried by a local token.
// ExpiresAt is epoch seconds; zero means the token carries no expiry.
type Claims struct {
	SubjectID string
	Role      domainauth.Role
	ExpiresAt int64
	domainauth.Jurisdiction
}

// Expired reports whether the token is at or past its expiry. A token
// with no expiry claim never expires. The boundary is inclusive: now ==
// exp means expired.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= c.ExpiresAt
}

// ExpiringSoon reports whether less than threshold remains before expiry.
// A token with no expiry claim is treated as not expiring. The boundary
// is exclusive: exactly threshold remaining is not "soon".
func (c Claims) ExpiringSoon(now time.Time, threshold time.Duration) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	remaining := time.Unix(c.ExpiresAt, 0).Sub(now)
	return remaining < threshold
}

// payload is the wire shape of the token's middle segment.
type payload struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Exp        int64  `json:"exp"`
	Department string `json:"department,omitempty"`
	Taluk      string `json:"taluk,omitempty"`
	District   string `json:"district,omitempty"`
	Division   string `json:"division,omitempty"`
}

// Decode parses a token string without verifying its signature. It is
// advisory only (expiry display and client-side checks); cryptographic
// verification is the server's concern (see Minter.Verify).
//
// The token must split into exactly three dot-separated segments, and the
// middle segment must base64url-decode to a JSON object containing at
// least id and role. Role is normalized to lowercase.
func Decode(tokenString string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, ErrMalformedToken
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, ErrMalformedToken
	}
	if p.ID == "" || p.Role == "" {
		return Claims{}, ErrMissingClaims
	}

	return Claims{
		SubjectID: p.ID,
		Role:      domainauth.Role(strings.ToLower(p.Role)),
		ExpiresAt: p.Exp,
		Jurisdiction: domainauth.Jurisdiction{
			Department: p.Department,
			Taluk:      p.Taluk,
			District:   p.District,
			Division:   p.Division,
		},
	}, nil
}

// decodeSegment translates base64url to standard base64 (- to +, _ to /),
// restores padding, and decodes.
func decodeSegment(seg string) ([]byte, error) {
	s := strings.ReplaceAll(seg, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return base64.StdEncoding.DecodeString(s)
}
