package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

// RequireProviderAuth returns a middleware that authenticates requests by
// validating the provider access token and resolving the user from the
// directory. The resolved principal is attached to the request context.
//
// Failure modes map to the closed wire codes: no bearer token is
// TOKEN_MISSING, provider rejection is INVALID_TOKEN, and a verified
// token with no matching user record is USER_NOT_FOUND.
func RequireProviderAuth(verifier ports.ProviderVerifier, directory ports.UserDirectory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken, ok := BearerToken(r)
			if !ok {
				WriteAuthError(w, apperrors.AuthTokenMissing, "No token provided")
				return
			}

			user, err := verifier.GetUser(r.Context(), accessToken)
			if err != nil {
				logger.WarnContext(r.Context(), "provider token rejected", "error", err)
				WriteAuthError(w, apperrors.AuthInvalidToken, "Invalid token")
				return
			}

			principal, found, err := directory.FindByEmail(r.Context(), user.Email)
			if err != nil {
				logger.ErrorContext(r.Context(), "directory lookup failed", "error", err)
				WriteError(w, err)
				return
			}
			if !found {
				WriteAuthError(w, apperrors.AuthUserNotFound, "User not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
		})
	}
}

// LocalVerifier resolves a principal from a locally minted session
// token. Implemented by service.AuthService.
type LocalVerifier interface {
	Verify(ctx context.Context, tokenString string) (domainauth.Principal, error)
}

// RequireLocalAuth returns a middleware that authenticates requests by
// verifying the locally minted session token (signature and expiry) and
// resolving the subject against the user store the token's role names.
func RequireLocalAuth(verifier LocalVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				WriteAuthError(w, apperrors.AuthTokenMissing, "No token provided")
				return
			}

			principal, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				logger.WarnContext(r.Context(), "session token rejected", "error", err)
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
		})
	}
}
