package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newPair(t *testing.T) (*Guard, *Issuer) {
	t.Helper()
	g, err := NewGuard(testSecret, "ledger")
	require.NoError(t, err)
	i, err := NewIssuer(testSecret, "ledger")
	require.NoError(t, err)
	return g, i
}

func TestNewGuard_WeakSecret(t *testing.T) {
	_, err := NewGuard("short", "ledger")
	assert.ErrorIs(t, err, ErrWeakSecret)
	_, err = NewIssuer("short", "ledger")
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	g, i := newPair(t)
	token, err := i.Sign("user-1", time.Hour)
	require.NoError(t, err)

	userID, err := g.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, 1, g.Tokens().Size(), "verified token is cached")

	userID, err = g.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestAuthenticate_Rejections(t *testing.T) {
	g, i := newPair(t)

	other, err := NewIssuer("ffffffffffffffffffffffffffffffff", "ledger")
	require.NoError(t, err)
	forged, err := other.Sign("user-1", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewIssuer(testSecret, "someone-else")
	require.NoError(t, err)
	foreign, err := wrongIssuer.Sign("user-1", time.Hour)
	require.NoError(t, err)

	i.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := i.Sign("user-1", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "ledger",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "ledger",
		Subject: "user-1",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "ledger",
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"forged":       forged,
		"wrong issuer": foreign,
		"expired":      expired,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"alg none":     noneAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := g.Authenticate(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrUnauthorized)
		})
	}
	assert.Equal(t, 0, g.Tokens().Size())
}

func TestIssuer_SignRequiresUser(t *testing.T) {
	_, i := newPair(t)
	_, err := i.Sign(" ", time.Hour)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerToken(r), "header %q", tt.header)
	}
}

func TestRequire(t *testing.T) {
	g, i := newPair(t)
	token, err := i.Sign("user-9", time.Hour)
	require.NoError(t, err)

	var denied error
	deny := func(w http.ResponseWriter, _ *http.Request, err error) {
		denied = err
		w.WriteHeader(http.StatusUnauthorized)
	}
	var seen string
	h := Require(g, deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-9", seen)
	})

	t.Run("missing header", func(t *testing.T) {
		denied = nil
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.ErrorIs(t, denied, core.ErrUnauthorized)
	})

	t.Run("bad token", func(t *testing.T) {
		denied = nil
		r := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
		r.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.ErrorIs(t, denied, core.ErrUnauthorized)
	})
}
