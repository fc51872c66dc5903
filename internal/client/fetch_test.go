package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	mocksauth "github.com/theervu-kaanal/grievance-api/internal/mocks/auth"
)

// apiFixture is an httptest server with a refresh endpoint and a
// protected data endpoint whose behavior each test script controls.
type apiFixture struct {
	srv *httptest.Server
	m   *SessionManager

	dataCalls    int
	refreshCalls int

	dataHandler    func(w http.ResponseWriter, r *http.Request, call int)
	refreshHandler func(w http.ResponseWriter, r *http.Request, call int)
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls++
		if f.refreshHandler != nil {
			f.refreshHandler(w, r, f.refreshCalls)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token": fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
			"user":  domainauth.Principal{ID: "p1", Role: domainauth.RolePetitioner},
		})
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		f.dataCalls++
		if f.dataHandler != nil {
			f.dataHandler(w, r, f.dataCalls)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	store := &mocksauth.MemorySessionStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.SessionSnapshot{
		Token:     fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(time.Hour).Unix()),
		Principal: domainauth.Principal{ID: "p1", Role: domainauth.RolePetitioner},
	}))

	f.m = newTestManager(t, f.srv.URL, store, nil)
	f.m.Initialize(ctx)
	require.Equal(t, StateAuthenticated, f.m.State())
	return f
}

func TestFetch_AttachesBearer(t *testing.T) {
	f := newAPIFixture(t)
	var gotAuth string
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true})
	}

	resp, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	require.NoError(t, err)
	resp.Body.Close()

	snap, _ := f.m.Snapshot()
	assert.Equal(t, "Bearer "+snap.Token, gotAuth)
}

func TestFetch_AnonymousShortCircuits(t *testing.T) {
	f := newAPIFixture(t)
	f.m.Logout(context.Background())
	require.Equal(t, StateAnonymous, f.m.State())

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// No request goes out for an unauthenticated caller.
	assert.Equal(t, 0, f.dataCalls)
	assert.Equal(t, 0, f.refreshCalls)
}

func TestFetch_ExpiredTokenShortCircuits(t *testing.T) {
	f := newAPIFixture(t)
	f.m.mu.Lock()
	f.m.snap.Token = fakeToken(t, "p1", domainauth.RolePetitioner, time.Now().Add(-time.Minute).Unix())
	f.m.mu.Unlock()

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The dead session is cleared without touching the network.
	assert.Equal(t, 0, f.dataCalls)
	assert.Equal(t, 0, f.refreshCalls)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestFetch_RefreshAndRetryOn401(t *testing.T) {
	f := newAPIFixture(t)
	var secondAuth string
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"code": "TOKEN_EXPIRED", "message": "Token expired"})
			return
		}
		secondAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true})
	}

	resp, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 2, f.dataCalls)
	assert.Equal(t, 1, f.refreshCalls)

	// The retry carries the refreshed token.
	snap, _ := f.m.Snapshot()
	assert.Equal(t, "Bearer "+snap.Token, secondAuth)
}

func TestFetch_AtMostOneRetry(t *testing.T) {
	f := newAPIFixture(t)
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"code": "INVALID_TOKEN"})
	}

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)

	// One original attempt plus exactly one retry, then give up.
	assert.Equal(t, 2, f.dataCalls)
	assert.Equal(t, 1, f.refreshCalls)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestFetch_FatalRefreshCodeDropsSession(t *testing.T) {
	f := newAPIFixture(t)
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"code": "TOKEN_EXPIRED"})
	}
	f.refreshHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"code": "USER_NOT_FOUND", "message": "User not found"})
	}

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, f.dataCalls)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestFetch_FatalCodeOnNon401DropsSession(t *testing.T) {
	f := newAPIFixture(t)
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"code": "INVALID_TOKEN", "message": "Invalid token"})
	}

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)

	// A 403 is not retried, but its fatal code still ends the session.
	assert.Equal(t, 1, f.dataCalls)
	assert.Equal(t, 0, f.refreshCalls)
	assert.Equal(t, StateAnonymous, f.m.State())
}

func TestFetch_Non2xxBecomesRequestError(t *testing.T) {
	f := newAPIFixture(t)
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "no such grievance"})
	}

	_, err := f.m.Fetch(context.Background(), "/api/data", RequestOptions{})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Equal(t, "no such grievance", reqErr.Message)

	// A plain failure does not touch the session.
	assert.Equal(t, StateAuthenticated, f.m.State())
}

func TestFetch_ContentTypeRules(t *testing.T) {
	f := newAPIFixture(t)
	var gotContentType string
	var gotBody string
	f.dataHandler = func(w http.ResponseWriter, r *http.Request, _ int) {
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true})
	}
	ctx := context.Background()

	// JSON payloads get the JSON content type and POST by default.
	resp, err := f.m.Fetch(ctx, "/api/data", RequestOptions{JSON: map[string]string{"subject": "streetlight"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"subject":"streetlight"}`, gotBody)

	// Raw bodies with an explicit type keep it.
	resp, err = f.m.Fetch(ctx, "/api/data", RequestOptions{
		Method:      http.MethodPut,
		Body:        strings.NewReader("raw-bytes"),
		ContentType: "application/octet-stream",
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "application/octet-stream", gotContentType)

	// Raw bodies without a type leave the header unset so multipart
	// writers can supply their own boundary.
	resp, err = f.m.Fetch(ctx, "/api/data", RequestOptions{
		Method: http.MethodPost,
		Body:   strings.NewReader("--boundary--"),
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotContentType)
}

func TestFetch_AbsoluteURLPassesThrough(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := f.m.Fetch(context.Background(), f.srv.URL+"/api/data", RequestOptions{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 1, f.dataCalls)
}

func TestFetchJSON_DecodesBody(t *testing.T) {
	f := newAPIFixture(t)

	var out struct {
		OK bool `json:"ok"`
	}
	err := f.m.FetchJSON(context.Background(), "/api/data", RequestOptions{}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}
