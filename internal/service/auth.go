package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"github.com/theervu-kaanal/grievance-api/internal/token"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider  ports.IdentityProvider
	Directory *CompositeDirectory
	Registrar ports.PetitionerRegistrar
	Minter    *token.Minter
}

// AuthService orchestrates the server-side auth flows: login against the
// identity provider plus the role's user store, session-token refresh and
// verification, and petitioner self-registration.
type AuthService struct {
	provider  ports.IdentityProvider
	directory *CompositeDirectory
	registrar ports.PetitionerRegistrar
	minter    *token.Minter
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	return &AuthService{
		provider:  opts.Provider,
		directory: opts.Directory,
		registrar: opts.Registrar,
		minter:    opts.Minter,
	}
}

// LoginInput groups parameters for a role-scoped login. Department is
// checked against the official's record when supplied; petitioner and
// admin logins ignore it.
type LoginInput struct {
	Role       domainauth.Role
	Email      string
	Password   string
	Department string
}

// LoginResult is the session triple returned on successful login: the
// locally minted token, the provider refresh token, and the principal.
type LoginResult struct {
	Token        string
	RefreshToken string
	Principal    domainauth.Principal
}

// Login signs the user in with the identity provider, resolves the
// principal from the role's user store, and mints a fresh session token.
// Bad credentials and unknown users both surface as unauthorized without
// saying which one failed.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if in.Password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	store, ok := s.directory.ByRole(in.Role)
	if !ok {
		return nil, apperrors.Validation("unknown role")
	}

	session, err := s.provider.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			return nil, apperrors.Unauthorized("Invalid login credentials")
		}
		return nil, fmt.Errorf("provider sign-in: %w", err)
	}

	principal, found, err := store.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !found {
		return nil, apperrors.Unauthorized("Invalid login credentials")
	}
	if in.Role == domainauth.RoleOfficial && in.Department != "" &&
		!strings.EqualFold(principal.Department, in.Department) {
		return nil, apperrors.Unauthorized("Invalid login credentials")
	}

	minted, err := s.minter.Mint(principal)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	return &LoginResult{
		Token:        minted,
		RefreshToken: session.RefreshToken,
		Principal:    principal,
	}, nil
}

// RefreshResult is the response to a successful refresh: a fresh token
// with a full validity window, plus the current principal.
type RefreshResult struct {
	Token     string
	Principal domainauth.Principal
}

// Refresh validates the presented session token and, when it still maps
// to a live user record, mints a replacement token. Failures carry one of
// the closed wire codes so clients can decide whether to drop the session.
func (s *AuthService) Refresh(ctx context.Context, tokenString string) (*RefreshResult, error) {
	principal, err := s.resolveToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	minted, err := s.minter.Mint(principal)
	if err != nil {
		return nil, apperrors.NewAuthError(apperrors.AuthRefreshFailed, "Failed to refresh token")
	}

	return &RefreshResult{Token: minted, Principal: principal}, nil
}

// Verify validates the presented session token and echoes the normalized
// principal it resolves to.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (domainauth.Principal, error) {
	return s.resolveToken(ctx, tokenString)
}

// resolveToken verifies a locally minted token and resolves its subject
// against the user store the token's role claim names.
func (s *AuthService) resolveToken(ctx context.Context, tokenString string) (domainauth.Principal, error) {
	if tokenString == "" {
		return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthTokenMissing, "No token provided")
	}

	claims, err := s.minter.Verify(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthTokenExpired, "Token expired")
		}
		return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthInvalidToken, "Invalid token")
	}

	store, ok := s.directory.ByRole(claims.Role)
	if !ok {
		return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthInvalidRole, "Invalid role")
	}

	principal, found, err := store.FindByID(ctx, claims.SubjectID)
	if err != nil {
		return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthRefreshFailed, "Failed to refresh token")
	}
	if !found {
		return domainauth.Principal{}, apperrors.NewAuthError(apperrors.AuthUserNotFound, "User not found")
	}

	return principal, nil
}

// RegisterInput groups parameters for petitioner self-registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// RegisterPetitioner creates the provider-side account, stores the
// petitioner row, and signs the new user in. Only petitioners self-register;
// officials and admins are provisioned out of band.
func (s *AuthService) RegisterPetitioner(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperrors.ValidationField("password", "password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	session, err := s.provider.SignUp(ctx, ports.SignUpInput{
		Email:    in.Email,
		Password: in.Password,
		Metadata: map[string]string{
			"first_name": in.FirstName,
			"last_name":  in.LastName,
			"phone":      in.Phone,
			"role":       string(domainauth.RolePetitioner),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("provider sign-up: %w", err)
	}

	principal, err := s.registrar.CreatePetitioner(ctx, ports.PetitionerRecord{
		ProviderID:   session.ProviderUserID,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("create petitioner: %w", err)
	}

	minted, err := s.minter.Mint(principal)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	return &LoginResult{
		Token:        minted,
		RefreshToken: session.RefreshToken,
		Principal:    principal,
	}, nil
}

// Profile returns the current stored record for the principal, re-read
// from its role store so profile edits made elsewhere show up.
func (s *AuthService) Profile(ctx context.Context, principal domainauth.Principal) (domainauth.Principal, error) {
	store, ok := s.directory.ByRole(principal.Role)
	if !ok {
		return domainauth.Principal{}, apperrors.Validation("unknown role")
	}

	fresh, found, err := store.FindByID(ctx, principal.ID)
	if err != nil {
		return domainauth.Principal{}, fmt.Errorf("find user by id: %w", err)
	}
	if !found {
		return domainauth.Principal{}, apperrors.NotFound("user not found")
	}
	return fresh, nil
}
