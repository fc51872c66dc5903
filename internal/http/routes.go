package httpx

import (
	"log/slog"
	"net/http"

	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"github.com/theervu-kaanal/grievance-api/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth      *service.AuthService
	Directory *service.CompositeDirectory

	// Verifier validates provider access tokens for the provider-auth
	// path; usually the redis-cached adapter.
	Verifier ports.ProviderVerifier

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router. Two auth paths guard
// the API: the provider path (provider access token, /api/auth/me and
// /api/users/*) and the local path (minted session token, refresh and
// verify).
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth, Logger: logger}
	userHandlers := &UserHandlers{Svc: services.Auth, Logger: logger}

	providerAuth := RequireProviderAuth(services.Verifier, services.Directory, logger)
	localAuth := RequireLocalAuth(services.Auth, logger)

	mux.HandleFunc("POST /api/auth/petitioner/login", authHandlers.PetitionerLogin)
	mux.HandleFunc("POST /api/auth/official/login", authHandlers.OfficialLogin)
	mux.HandleFunc("POST /api/auth/admin/login", authHandlers.AdminLogin)
	mux.HandleFunc("POST /api/auth/petitioner/register", authHandlers.Register)
	mux.HandleFunc("POST /api/auth/refresh", authHandlers.Refresh)
	mux.Handle("GET /api/auth/verify", localAuth(http.HandlerFunc(authHandlers.Verify)))
	mux.Handle("GET /api/auth/me", providerAuth(http.HandlerFunc(authHandlers.Me)))
	mux.Handle("GET /api/users/profile", providerAuth(http.HandlerFunc(userHandlers.Profile)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}
