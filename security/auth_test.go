package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/secctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims userClaims) string {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)}, nil)
	require.NoError(t, err)
	raw, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	require.NoError(t, err)
	return raw
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	ctx := secctx.MakeUserContext(r)
	w.Header().Set("X-User", secctx.GetUserId(ctx))
	w.WriteHeader(http.StatusNoContent)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestSecure_ApiKey(t *testing.T) {
	require.NoError(t, SetupGoGuardian("s3cret", ""))
	t.Cleanup(func() { strategy = nil })
	h := Wrap(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(ApiKeyHeader, "s3cret")
	rec := serve(h, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, apiKeyUserId, rec.Header().Get("X-User"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(ApiKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)
}

func TestSecure_Jwt(t *testing.T) {
	require.NoError(t, SetupGoGuardian("", testSecret))
	t.Cleanup(func() { strategy = nil })
	h := Wrap(okHandler)

	valid := signToken(t, testSecret, userClaims{Claims: jwt.Claims{
		Subject: "user-1",
		Expiry:  jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+valid)
	rec := serve(h, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-User"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: secctx.AccessTokenCookieName, Value: valid})
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)

	expired := signToken(t, testSecret, userClaims{Claims: jwt.Claims{
		Subject: "user-1",
		Expiry:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)

	forged := signToken(t, "ffffffffffffffffffffffffffffffff", userClaims{Claims: jwt.Claims{Subject: "user-1"}})
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)
}

func TestSetupGoGuardian_ShortSecret(t *testing.T) {
	assert.Error(t, SetupGoGuardian("", "short"))
}

func TestWrap_NoSecureRecoversPanics(t *testing.T) {
	strategy = nil
	h := Wrap(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
