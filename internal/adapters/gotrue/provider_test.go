package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.ProviderVerifier = (*Provider)(nil)
)

func newFakeIdP(t *testing.T) (*httptest.Server, *Provider) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "correct-horse" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
				return
			}
		case "refresh_token":
			if body["refresh_token"] != "good-refresh" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "provider-access",
			"refresh_token": "good-refresh",
			"user":          map[string]string{"id": "prov-1", "email": "asha@example.com"},
		})
	})
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "signup-access",
			"refresh_token": "signup-refresh",
			"user":          map[string]string{"id": "prov-2", "email": "new@example.com"},
		})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "prov-1", "email": "asha@example.com"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{BaseURL: srv.URL, APIKey: "anon-key", Client: srv.Client()})
	require.NoError(t, err)
	return srv, p
}

func TestProvider_SignIn(t *testing.T) {
	_, p := newFakeIdP(t)
	ctx := context.Background()

	sess, err := p.SignIn(ctx, "asha@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "provider-access", sess.AccessToken)
	assert.Equal(t, "prov-1", sess.ProviderUserID)

	// SIGNED_IN announced on the event stream.
	ev := <-p.Events()
	assert.Equal(t, domainauth.EventSignedIn, ev.Kind)
	require.NotNil(t, ev.Session)
}

func TestProvider_SignIn_BadPassword(t *testing.T) {
	_, p := newFakeIdP(t)

	_, err := p.SignIn(context.Background(), "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)
}

func TestProvider_GetSession_RestoresFromRefreshToken(t *testing.T) {
	srv, _ := newFakeIdP(t)

	p, err := NewProvider(Config{BaseURL: srv.URL, RefreshToken: "good-refresh", Client: srv.Client()})
	require.NoError(t, err)

	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "provider-access", sess.AccessToken)

	ev := <-p.Events()
	assert.Equal(t, domainauth.EventTokenRefreshed, ev.Kind)
}

func TestProvider_GetSession_NoSession(t *testing.T) {
	_, p := newFakeIdP(t)

	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestProvider_GetSession_StaleRefreshTokenMeansAnonymous(t *testing.T) {
	srv, _ := newFakeIdP(t)

	p, err := NewProvider(Config{BaseURL: srv.URL, RefreshToken: "stale", Client: srv.Client()})
	require.NoError(t, err)

	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestProvider_SignOutClearsSession(t *testing.T) {
	_, p := newFakeIdP(t)
	ctx := context.Background()

	sess, err := p.SignIn(ctx, "asha@example.com", "correct-horse")
	require.NoError(t, err)
	<-p.Events() // drain SIGNED_IN

	require.NoError(t, p.SignOut(ctx, sess.AccessToken))

	ev := <-p.Events()
	assert.Equal(t, domainauth.EventSignedOut, ev.Kind)

	got, err := p.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProvider_GetUser(t *testing.T) {
	_, p := newFakeIdP(t)
	ctx := context.Background()

	user, err := p.GetUser(ctx, "provider-access")
	require.NoError(t, err)
	assert.Equal(t, "prov-1", user.ID)
	assert.Equal(t, "asha@example.com", user.Email)

	_, err = p.GetUser(ctx, "bogus")
	assert.Error(t, err)
}
