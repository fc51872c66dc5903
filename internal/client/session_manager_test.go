package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	mocksauth "github.com/theervu-kaanal/grievance-api/internal/mocks/auth"
)

// fakeToken builds an unsigned three-segment token; Decode ignores the
// signature so this is enough for client-side expiry handling.
func fakeToken(t *testing.T, id string, role domainauth.Role, exp int64) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"id": id, "role": role, "exp": exp})
	require.NoError(t, err)
	seg := base64.RawURLEncoding.EncodeToString
	return seg([]byte(`{"alg":"none"}`)) + "." + seg(payload) + ".sig"
}

func newTestManager(t *testing.T, origin string, store *mocksauth.MemorySessionStore, provider *mocksauth.MockIdentityProvider) *SessionManager {
	t.Helper()
	cfg := Config{Origin: origin, Store: store}
	// Leave the interface field unset for a nil mock; assigning a nil
	// pointer would make a non-nil interface that defeats the provider
	// guard and crashes the event pump.
	if provider != nil {
		cfg.Provider = provider
	}
	m, err := NewSessionManager(cfg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestNewSessionManager_Validation(t *testing.T) {
	_, err := NewSessionManager(Config{Store: &mocksauth.MemorySessionStore{}})
	assert.Error(t, err)

	_, err = NewSessionManager(Config{Origin: "http://localhost:8080"})
	assert.Error(t, err)
}

func TestInitialize_RestoresStoredSession(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1", Role: domainauth.RolePetitioner},
	}))

	m := newTestManager(t, "http://localhost:8080", store, nil)
	assert.Equal(t, StateInitializing, m.State())

	m.Initialize(ctx)
	assert.Equal(t, StateAuthenticated, m.State())

	snap, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "p1", snap.Principal.ID)
	assert.False(t, m.ExpiryWarning())
}

func TestInitialize_EmptyStoreIsAnonymous(t *testing.T) {
	m := newTestManager(t, "http://localhost:8080", &mocksauth.MemorySessionStore{}, nil)
	m.Initialize(context.Background())
	assert.Equal(t, StateAnonymous, m.State())
}

func TestInitialize_NilProviderMockLeavesPumpOff(t *testing.T) {
	var provider *mocksauth.MockIdentityProvider
	m := newTestManager(t, "http://localhost:8080", &mocksauth.MemorySessionStore{}, provider)
	m.Initialize(context.Background())
	assert.Equal(t, StateAnonymous, m.State())
}

func TestInitialize_ProviderSessionRestoresProfile(t *testing.T) {
	access := fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix())
	profile := domainauth.Principal{ID: "p1", Role: domainauth.RolePetitioner, Email: "dev@example.com"}

	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, profile)
	}))
	defer srv.Close()

	provider := mocksauth.NewMockIdentityProvider()
	provider.GetSessionFunc = func(context.Context) (*domainauth.ProviderSession, error) {
		return &domainauth.ProviderSession{AccessToken: access, RefreshToken: "r1"}, nil
	}

	store := &mocksauth.MemorySessionStore{}
	m := newTestManager(t, srv.URL, store, provider)
	m.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "/api/users/profile", gotPath)
	assert.Equal(t, "Bearer "+access, gotAuth)

	snap, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "p1", snap.Principal.ID)
	assert.Equal(t, "r1", snap.RefreshToken)

	saved, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, access, saved.Token)
}

func TestInitialize_NoProviderSessionStaysAnonymous(t *testing.T) {
	provider := mocksauth.NewMockIdentityProvider()
	m := newTestManager(t, "http://localhost:8080", &mocksauth.MemorySessionStore{}, provider)
	m.Initialize(context.Background())
	assert.Equal(t, StateAnonymous, m.State())
}

func TestInitialize_ExpiredTokenDropsSession(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(-time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)
	assert.Equal(t, StateAnonymous, m.State())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitialize_SoonToExpireRaisesWarning(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(2*time.Minute).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.ExpiryWarning())
}

func TestLogin_EndpointPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		input    LoginInput
		endpoint string
	}{
		{
			name:     "petitioner by default",
			input:    LoginInput{Email: "a@b.c", Password: "x"},
			endpoint: "/api/auth/petitioner/login",
		},
		{
			name:     "department selects official",
			input:    LoginInput{Email: "a@b.c", Password: "x", Department: "Health"},
			endpoint: "/api/auth/official/login",
		},
		{
			name:     "adminId wins over department",
			input:    LoginInput{Email: "a@b.c", Password: "x", Department: "Health", AdminID: "adm-1"},
			endpoint: "/api/auth/admin/login",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				writeJSON(t, w, http.StatusOK, map[string]any{
					"token":        fakeToken(t, "u1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
					"refreshToken": "r1",
					"user":         domainauth.Principal{ID: "u1", Role: domainauth.RolePetitioner},
				})
			}))
			defer srv.Close()

			m := newTestManager(t, srv.URL, &mocksauth.MemorySessionStore{}, nil)
			m.Initialize(context.Background())

			_, err := m.Login(context.Background(), tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.endpoint, gotPath)
		})
	}
}

func TestLogin_OfficialBodyCarriesEmployeeID(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token": fakeToken(t, "o1", domainauth.RoleOfficial, time.Now().Add(time.Hour).Unix()),
			"user":  domainauth.Principal{ID: "o1", Role: domainauth.RoleOfficial},
		})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, &mocksauth.MemorySessionStore{}, nil)
	m.Initialize(context.Background())

	_, err := m.Login(context.Background(), LoginInput{
		Email:      "off@example.com",
		Password:   "x",
		Department: "Health",
		EmployeeID: "EMP-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Health", gotBody["department"])
	assert.Equal(t, "EMP-42", gotBody["employeeId"])
}

func TestLogin_SuccessPersistsAndRoutes(t *testing.T) {
	official := domainauth.Principal{
		ID: "o1", Role: domainauth.RoleOfficial, Email: "off@example.com",
		Jurisdiction: domainauth.Jurisdiction{Department: "Health"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token":        fakeToken(t, "o1", domainauth.RoleOfficial, time.Now().Add(time.Hour).Unix()),
			"refreshToken": "r1",
			"user":         official,
		})
	}))
	defer srv.Close()

	store := &mocksauth.MemorySessionStore{}
	m := newTestManager(t, srv.URL, store, nil)
	m.Initialize(context.Background())

	res, err := m.Login(context.Background(), LoginInput{Email: "off@example.com", Password: "x", Department: "Health"})
	require.NoError(t, err)
	assert.Equal(t, "Official", res.Role)
	assert.Equal(t, "/official/health/dashboard", res.LandingPath)
	assert.Equal(t, StateAuthenticated, m.State())

	saved, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r1", saved.RefreshToken)
	assert.Equal(t, "o1", saved.Principal.ID)
}

func TestLogin_ServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"error": "Invalid login credentials"})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, &mocksauth.MemorySessionStore{}, nil)
	m.Initialize(context.Background())

	_, err := m.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "bad"})
	var loginErr *LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, "Invalid login credentials", loginErr.Message)
	assert.Equal(t, StateAnonymous, m.State())
}

func TestLogin_StoreFailureKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token": fakeToken(t, "u1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
			"user":  domainauth.Principal{ID: "u1", Role: domainauth.RolePetitioner},
		})
	}))
	defer srv.Close()

	store := &mocksauth.MemorySessionStore{FailSave: errors.New("disk full")}
	m := newTestManager(t, srv.URL, store, nil)
	m.Initialize(context.Background())

	_, err := m.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestLandingPath(t *testing.T) {
	tests := []struct {
		name string
		p    domainauth.Principal
		want string
	}{
		{"petitioner", domainauth.Principal{Role: domainauth.RolePetitioner}, "/petitioner/dashboard"},
		{"admin", domainauth.Principal{Role: domainauth.RoleAdmin}, "/admin/dashboard"},
		{
			"official with department",
			domainauth.Principal{Role: domainauth.RoleOfficial, Jurisdiction: domainauth.Jurisdiction{Department: "Health"}},
			"/official/health/dashboard",
		},
		{
			"official without department",
			domainauth.Principal{Role: domainauth.RoleOfficial},
			"/official/dashboard",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LandingPath(tc.p))
		})
	}
}

func TestLogout_NeverFails(t *testing.T) {
	provider := mocksauth.NewMockIdentityProvider()
	var signOutToken string
	provider.SignOutFunc = func(_ context.Context, tok string) error {
		signOutToken = tok
		return errors.New("provider unreachable")
	}

	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:        fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		RefreshToken: "refresh-1",
		Principal:    domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, provider)
	m.Initialize(ctx)
	require.Equal(t, StateAuthenticated, m.State())

	m.Logout(ctx)
	assert.Equal(t, StateAnonymous, m.State())
	assert.Equal(t, 1, provider.SignOutCalls)
	assert.Equal(t, "refresh-1", signOutToken)

	_, ok, _ := store.Load(ctx)
	assert.False(t, ok)
}

func TestCheckExpiration(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	m := newTestManager(t, "http://localhost:8080", store, nil)

	// Anonymous: nothing to check.
	m.Initialize(ctx)
	assert.False(t, m.CheckExpiration())

	// Plenty of time left: no warning.
	seed := func(exp int64) {
		require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
			Token:     fakeToken(t, "p1", domainauth.RolePetitioner, exp),
			Principal: domainauth.Principal{ID: "p1"},
		}))
		m.Initialize(ctx)
	}

	seed(time.Now().Add(time.Hour).Unix())
	assert.False(t, m.CheckExpiration())

	// Inside the warning threshold.
	seed(time.Now().Add(time.Minute).Unix())
	assert.True(t, m.CheckExpiration())
	assert.True(t, m.ExpiryWarning())

	// Past expiry: the session is dropped.
	seed(time.Now().Add(time.Minute).Unix())
	m.mu.Lock()
	m.snap.Token = fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(-time.Second).Unix())
	m.mu.Unlock()
	assert.False(t, m.CheckExpiration())
	assert.Equal(t, StateAnonymous, m.State())
}

func TestHandleAuthEvent_SignedOutIsIdempotent(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)

	m.HandleAuthEvent(domainauth.Event{Kind: domainauth.EventSignedOut})
	assert.Equal(t, StateAnonymous, m.State())

	// Replaying the event changes nothing.
	m.HandleAuthEvent(domainauth.Event{Kind: domainauth.EventSignedOut})
	assert.Equal(t, StateAnonymous, m.State())
}

func TestHandleAuthEvent_SignedInRestoresStoredSession(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)
	require.Equal(t, StateAnonymous, m.State())

	// Another window logged in and left a snapshot in the store.
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m.HandleAuthEvent(domainauth.Event{Kind: domainauth.EventSignedIn})
	assert.Equal(t, StateAuthenticated, m.State())

	snap, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "p1", snap.Principal.ID)

	// Replaying the event while authenticated changes nothing.
	m.HandleAuthEvent(domainauth.Event{Kind: domainauth.EventSignedIn})
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestHandleAuthEvent_SignedInIgnoresExpiredStoredSession(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)

	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(-time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m.HandleAuthEvent(domainauth.Event{Kind: domainauth.EventSignedIn})
	assert.Equal(t, StateAnonymous, m.State())
}

func TestHandleAuthEvent_TokenRefreshedUpdatesStore(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:        fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		RefreshToken: "old-refresh",
		Principal:    domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, nil)
	m.Initialize(ctx)

	m.HandleAuthEvent(domainauth.Event{
		Kind:    domainauth.EventTokenRefreshed,
		Session: &domainauth.ProviderSession{RefreshToken: "new-refresh"},
	})

	saved, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-refresh", saved.RefreshToken)
}

func TestEventPump_DeliversProviderEvents(t *testing.T) {
	provider := mocksauth.NewMockIdentityProvider()
	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1"},
	}))

	m := newTestManager(t, "http://localhost:8080", store, provider)
	m.Initialize(ctx)
	require.Equal(t, StateAuthenticated, m.State())

	provider.Emit(domainauth.Event{Kind: domainauth.EventSignedOut})

	require.Eventually(t, func() bool {
		return m.State() == StateAnonymous
	}, time.Second, 10*time.Millisecond)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}
