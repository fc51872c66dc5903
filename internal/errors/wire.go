package errors

// AuthCode is the closed set of machine-readable codes the auth endpoints
// and verification middleware put on the wire. Clients key logout-and-retry
// behavior off these values, so the set must stay stable.
type AuthCode string

const (
	// AuthTokenMissing: no bearer token on the request.
	AuthTokenMissing AuthCode = "TOKEN_MISSING"
	// AuthInvalidToken: the token failed provider or signature verification.
	AuthInvalidToken AuthCode = "INVALID_TOKEN"
	// AuthTokenExpired: signature valid but the token is past expiry.
	AuthTokenExpired AuthCode = "TOKEN_EXPIRED"
	// AuthUserNotFound: token verified but no matching user record exists.
	AuthUserNotFound AuthCode = "USER_NOT_FOUND"
	// AuthInvalidRole: the token carries a role no user store corresponds to.
	AuthInvalidRole AuthCode = "INVALID_ROLE"
	// AuthRefreshFailed: catch-all for refresh endpoint failures.
	AuthRefreshFailed AuthCode = "REFRESH_FAILED"
)

// AuthError pairs a wire code with a human-readable message. All auth
// failures surface as 401 with this body shape.
type AuthError struct {
	Code    AuthCode
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string { return e.Message }

// NewAuthError constructs an AuthError.
func NewAuthError(code AuthCode, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}
