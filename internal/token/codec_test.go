package token

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
)

// fakeToken builds an unsigned three-segment token around the given payload.
func fakeToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestDecode_ValidToken(t *testing.T) {
	tok := fakeToken(t, map[string]any{
		"id":   "abc123",
		"role": "Official",
		"exp":  int64(1900000000),
		"taluk": "Mettur",
	})

	claims, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.SubjectID)
	assert.Equal(t, domainauth.RoleOfficial, claims.Role, "role is lowercased")
	assert.Equal(t, int64(1900000000), claims.ExpiresAt)
	assert.Equal(t, "Mettur", claims.Taluk)
}

func TestDecode_SegmentCount(t *testing.T) {
	for _, tok := range []string{"", "onlyone", "two.parts", "a.b.c.d"} {
		_, err := Decode(tok)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", tok)
	}
}

func TestDecode_BadPayload(t *testing.T) {
	// Middle segment is not base64 JSON.
	_, err := Decode("header.%%%%.sig")
	assert.ErrorIs(t, err, ErrMalformedToken)

	// Valid base64 but not JSON.
	mid := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	_, err = Decode("header." + mid + ".sig")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestDecode_MissingClaims(t *testing.T) {
	_, err := Decode(fakeToken(t, map[string]any{"role": "admin"}))
	assert.ErrorIs(t, err, ErrMissingClaims)

	_, err = Decode(fakeToken(t, map[string]any{"id": "abc123"}))
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestDecode_URLSafeAlphabet(t *testing.T) {
	// Payload whose base64 form exercises the -/_ translation.
	body, err := json.Marshal(map[string]any{
		"id":   "a?b>c~d\xff\xfe",
		"role": "admin",
	})
	require.NoError(t, err)
	tok := "h." + base64.RawURLEncoding.EncodeToString(body) + ".s"

	claims, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, claims.Role)
}

func TestClaims_Expired(t *testing.T) {
	now := time.Now()

	c := Claims{ExpiresAt: now.Add(time.Hour).Unix()}
	assert.False(t, c.Expired(now))

	c = Claims{ExpiresAt: now.Add(-time.Hour).Unix()}
	assert.True(t, c.Expired(now))

	// Boundary: now == exp is expired.
	c = Claims{ExpiresAt: now.Unix()}
	assert.True(t, c.Expired(now))

	// No expiry claim: never expires.
	c = Claims{}
	assert.False(t, c.Expired(now))
}

func TestClaims_ExpiringSoon(t *testing.T) {
	now := time.Now()

	c := Claims{ExpiresAt: now.Add(200 * time.Second).Unix()}
	assert.True(t, c.ExpiringSoon(now, DefaultExpiryWarningThreshold))

	c = Claims{ExpiresAt: now.Add(400 * time.Second).Unix()}
	assert.False(t, c.ExpiringSoon(now, DefaultExpiryWarningThreshold))

	// Boundary: exactly 300s remaining is not "soon".
	c = Claims{ExpiresAt: now.Add(300 * time.Second).Unix()}
	assert.False(t, c.ExpiringSoon(time.Unix(now.Unix(), 0), DefaultExpiryWarningThreshold))

	// No expiry claim means never expiring.
	c = Claims{}
	assert.False(t, c.ExpiringSoon(now, DefaultExpiryWarningThreshold))
}
