package client

// Package client implements the user-facing side of the auth core: a
// session state machine persisted across restarts, and an authenticated
// request pipeline with transparent token refresh.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"github.com/theervu-kaanal/grievance-api/internal/token"
)

// State is the session manager's lifecycle state.
type State string

const (
	// StateInitializing: restore from storage has not completed yet.
	StateInitializing State = "initializing"
	// StateAuthenticated: a session triple is held and presumed valid.
	StateAuthenticated State = "authenticated"
	// StateAnonymous: no session; the user must log in.
	StateAnonymous State = "anonymous"
)

// Config groups dependencies for the SessionManager.
type Config struct {
	// Origin is the API base, e.g. "http://localhost:8080". Relative
	// request paths resolve against it.
	Origin string

	Store ports.SessionStore

	// Provider is optional; when set, its event stream is consumed by a
	// single pump goroutine started by Initialize.
	Provider ports.IdentityProvider

	HTTPClient *http.Client
	Logger     *slog.Logger

	// ExpiryWarningThreshold defaults to token.DefaultExpiryWarningThreshold.
	ExpiryWarningThreshold time.Duration
}

// SessionManager owns the client-side session lifecycle. All state
// mutations are serialized through one mutex; provider events are
// consumed by a single goroutine, so there is exactly one writer path
// per source and handlers stay idempotent.
type SessionManager struct {
	origin        *url.URL
	httpClient    *http.Client
	store         ports.SessionStore
	provider      ports.IdentityProvider
	logger        *slog.Logger
	warnThreshold time.Duration

	mu            sync.Mutex
	state         State
	snap          domainauth.SessionSnapshot
	expiryWarning bool

	pumpOnce sync.Once
	done     chan struct{}
}

// NewSessionManager constructs a SessionManager in the Initializing state.
func NewSessionManager(cfg Config) (*SessionManager, error) {
	if cfg.Origin == "" {
		return nil, fmt.Errorf("origin is required")
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.ExpiryWarningThreshold
	if threshold <= 0 {
		threshold = token.DefaultExpiryWarningThreshold
	}

	return &SessionManager{
		origin:        origin,
		httpClient:    httpClient,
		store:         cfg.Store,
		provider:      cfg.Provider,
		logger:        logger,
		warnThreshold: threshold,
		state:         StateInitializing,
		done:          make(chan struct{}),
	}, nil
}

// Initialize restores the session from durable storage, falling back to
// the identity provider's live session when storage holds nothing, and
// starts the provider event pump. It never fails: any restore problem
// lands in the Anonymous state so the app can proceed to the login
// screen.
func (m *SessionManager) Initialize(ctx context.Context) {
	m.mu.Lock()

	snap, ok, err := m.store.Load(ctx)
	restored := false
	switch {
	case err != nil:
		m.logger.WarnContext(ctx, "session restore failed", "error", err)
		m.state = StateAnonymous
	case !ok:
		m.state = StateAnonymous
	default:
		claims, decErr := token.Decode(snap.Token)
		if decErr != nil || claims.Expired(time.Now()) {
			m.mu.Unlock()
			m.dropSession(ctx)
			m.restoreFromProvider(ctx)
			m.startPump()
			return
		}
		m.snap = snap
		m.state = StateAuthenticated
		m.expiryWarning = claims.ExpiringSoon(time.Now(), m.warnThreshold)
		restored = true
	}
	m.mu.Unlock()

	if !restored {
		m.restoreFromProvider(ctx)
	}
	m.startPump()
}

// restoreFromProvider asks the identity provider for a live session when
// durable storage held no usable one. The provider session carries no
// principal, so the profile is fetched with its access token before the
// session is adopted.
func (m *SessionManager) restoreFromProvider(ctx context.Context) {
	if m.provider == nil {
		return
	}
	sess, err := m.provider.GetSession(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "provider session lookup failed", "error", err)
		return
	}
	if sess == nil || sess.AccessToken == "" {
		return
	}

	profile, err := m.fetchProfile(ctx, sess.AccessToken)
	if err != nil {
		m.logger.WarnContext(ctx, "profile fetch failed", "error", err)
		return
	}

	snap := domainauth.SessionSnapshot{
		Token:        sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Principal:    profile,
	}
	m.mu.Lock()
	m.snap = snap
	m.state = StateAuthenticated
	m.expiryWarning = false
	m.mu.Unlock()

	if saveErr := m.store.Save(ctx, snap); saveErr != nil {
		m.logger.WarnContext(ctx, "session persist failed", "error", saveErr)
	}
}

// fetchProfile reads GET /api/users/profile with the given provider
// access token.
func (m *SessionManager) fetchProfile(ctx context.Context, accessToken string) (domainauth.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.resolve("/api/users/profile"), nil)
	if err != nil {
		return domainauth.Principal{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return domainauth.Principal{}, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domainauth.Principal{}, fmt.Errorf("profile request: status %d", resp.StatusCode)
	}

	var profile domainauth.Principal
	if decErr := json.NewDecoder(resp.Body).Decode(&profile); decErr != nil {
		return domainauth.Principal{}, fmt.Errorf("decode profile: %w", decErr)
	}
	return profile, nil
}

// startPump launches the single goroutine consuming provider events.
func (m *SessionManager) startPump() {
	if m.provider == nil {
		return
	}
	m.pumpOnce.Do(func() {
		go func() {
			events := m.provider.Events()
			for {
				select {
				case ev, open := <-events:
					if !open {
						return
					}
					m.HandleAuthEvent(ev)
				case <-m.done:
					return
				}
			}
		}()
	})
}

// Close stops the event pump. Safe to call more than once.
func (m *SessionManager) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// LoginInput selects the login endpoint and carries the credentials.
// Precedence: AdminID set -> admin login; Department set -> official
// login; otherwise petitioner login.
type LoginInput struct {
	Email      string
	Password   string
	Department string
	AdminID    string

	// EmployeeID optionally accompanies an official login.
	EmployeeID string
}

// LoginResult is what the UI needs after a successful login.
type LoginResult struct {
	Principal   domainauth.Principal
	Role        string // display-cased, e.g. "Petitioner"
	LandingPath string
}

// loginResponse is the wire shape of the login endpoints.
type loginResponse struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refreshToken"`
	User         domainauth.Principal `json:"user"`
	ErrorMsg     string               `json:"error"`
	Message      string               `json:"message"`
}

// Login authenticates against the role endpoint the input selects,
// persists the session triple, and returns the landing path for the
// principal's role.
func (m *SessionManager) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	endpoint := "/api/auth/petitioner/login"
	body := map[string]string{"email": in.Email, "password": in.Password}
	switch {
	case in.AdminID != "":
		endpoint = "/api/auth/admin/login"
		body["adminId"] = in.AdminID
	case in.Department != "":
		endpoint = "/api/auth/official/login"
		body["department"] = in.Department
		if in.EmployeeID != "" {
			body["employeeId"] = in.EmployeeID
		}
	}

	var out loginResponse
	status, err := m.postJSON(ctx, endpoint, body, &out)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	if status < 200 || status >= 300 {
		msg := out.ErrorMsg
		if msg == "" {
			msg = out.Message
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &LoginError{Message: msg}
	}
	if out.Token == "" || out.User.ID == "" {
		return nil, &LoginError{Message: "malformed login response"}
	}

	snap := domainauth.SessionSnapshot{
		Token:        out.Token,
		RefreshToken: out.RefreshToken,
		Principal:    out.User,
	}

	m.mu.Lock()
	m.snap = snap
	m.state = StateAuthenticated
	m.expiryWarning = false
	m.mu.Unlock()

	if err := m.store.Save(ctx, snap); err != nil {
		// The in-memory session stands; it just will not survive restart.
		m.logger.WarnContext(ctx, "session persist failed", "error", err)
	}

	return &LoginResult{
		Principal:   out.User,
		Role:        domainauth.DisplayRole(out.User.Role),
		LandingPath: LandingPath(out.User),
	}, nil
}

// LandingPath maps a principal to its post-login route. Officials land on
// their department dashboard; an official with no department gets the
// generic one.
func LandingPath(p domainauth.Principal) string {
	switch p.Role {
	case domainauth.RoleAdmin:
		return "/admin/dashboard"
	case domainauth.RoleOfficial:
		dept := strings.ToLower(strings.TrimSpace(p.Department))
		if dept == "" {
			return "/official/dashboard"
		}
		return "/official/" + url.PathEscape(dept) + "/dashboard"
	default:
		return "/petitioner/dashboard"
	}
}

// Logout clears the session. It never fails: the provider sign-out and
// the store clear are both best-effort, and the in-memory state always
// ends Anonymous.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	// The snapshot does not retain the provider access token, so the
	// refresh token stands in for the best-effort provider sign-out.
	refreshToken := m.snap.RefreshToken
	m.mu.Unlock()

	if m.provider != nil {
		if err := m.provider.SignOut(ctx, refreshToken); err != nil {
			m.logger.WarnContext(ctx, "provider sign-out failed", "error", err)
		}
	}
	m.dropSession(ctx)
}

// dropSession clears local state without touching the provider.
func (m *SessionManager) dropSession(ctx context.Context) {
	m.mu.Lock()
	m.snap = domainauth.SessionSnapshot{}
	m.state = StateAnonymous
	m.expiryWarning = false
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "session clear failed", "error", err)
	}
}

// CheckExpiration re-evaluates the held token. An expired token drops
// the session; a token inside the warning threshold raises the expiry
// warning. It reports whether the warning is active.
func (m *SessionManager) CheckExpiration() bool {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return false
	}
	claims, err := token.Decode(m.snap.Token)
	if err != nil || claims.Expired(time.Now()) {
		m.mu.Unlock()
		m.dropSession(context.Background())
		return false
	}
	m.expiryWarning = claims.ExpiringSoon(time.Now(), m.warnThreshold)
	warning := m.expiryWarning
	m.mu.Unlock()
	return warning
}

// HandleAuthEvent applies a provider auth-state-change notification.
// Handlers are idempotent: replaying an event leaves the same state.
func (m *SessionManager) HandleAuthEvent(ev domainauth.Event) {
	switch ev.Kind {
	case domainauth.EventSignedOut:
		m.mu.Lock()
		signedIn := m.state == StateAuthenticated
		m.mu.Unlock()
		if signedIn {
			m.dropSession(context.Background())
		}
	case domainauth.EventTokenRefreshed:
		if ev.Session == nil {
			return
		}
		m.mu.Lock()
		if m.state != StateAuthenticated {
			m.mu.Unlock()
			return
		}
		m.snap.RefreshToken = ev.Session.RefreshToken
		snap := m.snap
		m.mu.Unlock()
		if err := m.store.Save(context.Background(), snap); err != nil {
			m.logger.Warn("session persist failed", "error", err)
		}
	case domainauth.EventSignedIn:
		// Login drives local sign-in; the notification matters when
		// another window signed in and left a snapshot in the store.
		m.mu.Lock()
		if m.state == StateAuthenticated {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx := context.Background()
		snap, ok, err := m.store.Load(ctx)
		if err != nil || !ok {
			return
		}
		claims, decErr := token.Decode(snap.Token)
		if decErr != nil || claims.Expired(time.Now()) {
			return
		}
		m.mu.Lock()
		m.snap = snap
		m.state = StateAuthenticated
		m.expiryWarning = claims.ExpiringSoon(time.Now(), m.warnThreshold)
		m.mu.Unlock()
	}
}

// State returns the current lifecycle state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the current session, if authenticated.
func (m *SessionManager) Snapshot() (domainauth.SessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return domainauth.SessionSnapshot{}, false
	}
	return m.snap, true
}

// ExpiryWarning reports whether the held token is inside the warning
// threshold, as of the last check.
func (m *SessionManager) ExpiryWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiryWarning
}

// refreshResponse is the wire shape of POST /api/auth/refresh.
type refreshResponse struct {
	Token   string               `json:"token"`
	User    domainauth.Principal `json:"user"`
	Message string               `json:"message"`
	Code    string               `json:"code"`
}

// Refresh exchanges the held token for a fresh one. A failure whose wire
// code says the session is unrecoverable drops the session and returns
// ErrSessionExpired.
func (m *SessionManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrUnauthenticated
	}
	current := m.snap.Token
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.resolve("/api/auth/refresh"), nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	var out refreshResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&out); decErr != nil && resp.StatusCode < 300 {
		return fmt.Errorf("decode refresh response: %w", decErr)
	}

	if resp.StatusCode != http.StatusOK {
		if fatalAuthCode(out.Code) {
			m.dropSession(ctx)
			return ErrSessionExpired
		}
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: msg}
	}

	m.mu.Lock()
	m.snap.Token = out.Token
	if out.User.ID != "" {
		m.snap.Principal = out.User
	}
	m.expiryWarning = false
	snap := m.snap
	m.mu.Unlock()

	if err := m.store.Save(ctx, snap); err != nil {
		m.logger.WarnContext(ctx, "session persist failed", "error", err)
	}
	return nil
}

// fatalAuthCode reports whether a refresh failure code means the session
// cannot be recovered and must be dropped.
func fatalAuthCode(code string) bool {
	switch code {
	case "TOKEN_MISSING", "INVALID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND", "INVALID_ROLE", "REFRESH_FAILED":
		return true
	}
	return false
}

// resolve turns a path into an absolute URL against the configured
// origin. Already-absolute URLs pass through.
func (m *SessionManager) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return m.origin.String() + path
	}
	return m.origin.ResolveReference(ref).String()
}

// postJSON posts a JSON body and decodes the JSON response, returning
// the status code. Used by the login flow, which runs before a token
// exists.
func (m *SessionManager) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.resolve(path), bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies; the caller falls back to the
		// status text.
		_ = json.Unmarshal(raw, out)
	}
	return resp.StatusCode, nil
}
