package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
)

// DefaultValidity is the lifetime of a minted token: exactly 24 hours
// from mint time. Tokens are never mutated after minting.
const DefaultValidity = 24 * time.Hour

// MinterConfig holds configuration for the token minter.
type MinterConfig struct {
	Secret   string
	Validity time.Duration // defaults to DefaultValidity when zero
}

// Minter mints and verifies local session tokens.
type Minter struct {
	secret   []byte
	validity time.Duration
}

// NewMinter constructs a Minter. The signing secret is required.
func NewMinter(cfg MinterConfig) (*Minter, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	validity := cfg.Validity
	if validity == 0 {
		validity = DefaultValidity
	}
	return &Minter{secret: []byte(cfg.Secret), validity: validity}, nil
}

// jwtClaims is the signed claim set. It mirrors the payload shape Decode
// reads, plus the registered expiry claim.
type jwtClaims struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Taluk      string `json:"taluk,omitempty"`
	District   string `json:"district,omitempty"`
	Division   string `json:"division,omitempty"`
	jwt.RegisteredClaims
}

// Mint issues a signed token for the principal. Jurisdiction claims are
// included only for officials.
func (m *Minter) Mint(p domainauth.Principal) (string, error) {
	if p.ID == "" {
		return "", errors.New("principal id is required")
	}

	role := strings.ToLower(string(p.Role))
	if role == "" {
		role = string(domainauth.RolePetitioner)
	}

	claims := jwtClaims{
		ID:   p.ID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.validity)),
		},
	}
	if domainauth.Role(role) == domainauth.RoleOfficial {
		claims.Department = p.Department
		claims.Taluk = p.Taluk
		claims.District = p.District
		claims.Division = p.Division
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// Expired tokens return ErrTokenExpired; every other failure returns
// ErrInvalidToken.
func (m *Minter) Verify(tokenString string) (Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.ID == "" || claims.Role == "" {
		return Claims{}, ErrInvalidToken
	}

	var exp int64
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}

	return Claims{
		SubjectID: claims.ID,
		Role:      domainauth.Role(strings.ToLower(claims.Role)),
		ExpiresAt: exp,
		Jurisdiction: domainauth.Jurisdiction{
			Department: claims.Department,
			Taluk:      claims.Taluk,
			District:   claims.District,
			Division:   claims.Division,
		},
	}, nil
}
